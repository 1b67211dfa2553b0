package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// Order sides accepted by the price endpoints.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// BookMeta are the book fields copied onto every level row.
var BookMeta = []string{"market", "asset_id", "timestamp", "hash", "min_order_size", "tick_size", "neg_risk"}

// TokenSide selects one token, and optionally one side, in bulk requests.
type TokenSide struct {
	TokenID string `json:"token_id"`
	Side    string `json:"side,omitempty"`
}

// TokenSidesFromTable builds bulk request items from a table with a
// token_id (or clobTokenIds) column and an optional side column.
func TokenSidesFromTable(t *table.Table) ([]TokenSide, error) {
	column := "token_id"
	switch {
	case t.HasColumn("token_id"):
	case t.HasColumn("tokenId"):
		column = "tokenId"
	case t.HasColumn(table.ClobTokenIDsColumn):
		column = table.ClobTokenIDsColumn
		t = t.Explode(column)
	default:
		return nil, fmt.Errorf("clob: table has no token_id column")
	}

	out := make([]TokenSide, 0, t.Len())
	for _, r := range t.Records {
		id := fmt.Sprint(r[column])
		if r[column] == nil || id == "" {
			continue
		}
		ts := TokenSide{TokenID: id}
		if side, ok := r["side"].(string); ok {
			ts.Side = side
		}
		out = append(out, ts)
	}
	return out, nil
}

// ServerTime returns the CLOB clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	body, err := c.http.Get(ctx, client.SurfaceCLOB, "/time", nil)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(string(trimJSON(body)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("clob: parse server time %q: %w", body, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// OrderBook returns the book of one token, one row per price level.
func (c *Client) OrderBook(ctx context.Context, tokenID string) (*table.Table, error) {
	t, err := c.http.GetTable(ctx, client.SurfaceCLOB, "/book", url.Values{"token_id": {tokenID}})
	if err != nil {
		return nil, err
	}
	return c.flattenBooks(t)
}

// OrderBooks returns the books of several tokens in one request.
func (c *Client) OrderBooks(ctx context.Context, tokens []TokenSide) (*table.Table, error) {
	body, err := c.post(ctx, "/books", tokens)
	if err != nil {
		return nil, err
	}
	t, err := table.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("clob /books: %w", err)
	}
	return c.flattenBooks(t)
}

// flattenBooks emits the bid levels of every book, then the ask levels,
// tagged with side "bids" or "asks".
func (c *Client) flattenBooks(books *table.Table) (*table.Table, error) {
	sides := make([]*table.Table, 0, 2)
	for _, side := range []string{"bids", "asks"} {
		levels, err := table.Normalize(books, side, BookMeta, "")
		if err != nil {
			return nil, err
		}
		levels.Set("side", side)
		sides = append(sides, levels)
	}
	return c.schema.Apply(table.Concat(sides...)), nil
}

// Price returns the best price for a token on side.
func (c *Client) Price(ctx context.Context, tokenID, side string) (float64, error) {
	r, err := c.http.GetRecord(ctx, client.SurfaceCLOB, "/price", url.Values{"token_id": {tokenID}, "side": {side}})
	if err != nil {
		return 0, err
	}
	return floatField(r, "price")
}

// Prices returns one row per token and side with columns tokenId, side
// and price. Tokens are sorted.
func (c *Client) Prices(ctx context.Context, tokens []TokenSide) (*table.Table, error) {
	body, err := c.post(ctx, "/prices", tokens)
	if err != nil {
		return nil, err
	}

	var bySide map[string]map[string]json.Number
	if err := json.Unmarshal(body, &bySide); err != nil {
		return nil, fmt.Errorf("clob /prices: %w: %v", table.ErrMalformedPage, err)
	}

	t := table.New()
	t.Columns = []string{"tokenId", "side", "price"}
	for _, token := range sortedKeys(bySide) {
		sides := bySide[token]
		for _, side := range sortedKeys(sides) {
			t.Records = append(t.Records, table.Record{"tokenId": token, "side": side, "price": sides[side]})
		}
	}
	return c.schema.Apply(t), nil
}

// Midpoint returns the midpoint between the best bid and ask.
func (c *Client) Midpoint(ctx context.Context, tokenID string) (float64, error) {
	r, err := c.http.GetRecord(ctx, client.SurfaceCLOB, "/midpoint", url.Values{"token_id": {tokenID}})
	if err != nil {
		return 0, err
	}
	return floatField(r, "mid")
}

// Spreads returns the bid/ask spread per token id.
func (c *Client) Spreads(ctx context.Context, tokens []TokenSide) (map[string]float64, error) {
	body, err := c.post(ctx, "/spreads", tokens)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.Number
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("clob /spreads: %w: %v", table.ErrMalformedPage, err)
	}
	out := make(map[string]float64, len(raw))
	for token, v := range raw {
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("clob /spreads: token %s: %w", token, err)
		}
		out[token] = f
	}
	return out, nil
}

// PriceHistoryParams filters GET /prices-history. Interval and the
// StartTs/EndTs range are alternatives.
type PriceHistoryParams struct {
	Market   string
	StartTs  time.Time
	EndTs    time.Time
	Interval string
	Fidelity int
}

// Values encodes the query string. Times are sent as Unix seconds.
func (p PriceHistoryParams) Values() url.Values {
	return client.NewParams().
		Set("market", p.Market).
		SetIf(!p.StartTs.IsZero(), "startTs", p.StartTs.Unix()).
		SetIf(!p.EndTs.IsZero(), "endTs", p.EndTs.Unix()).
		Set("interval", p.Interval).
		SetIf(p.Fidelity > 0, "fidelity", p.Fidelity).
		Values()
}

// PriceHistory returns the price series of a token as rows {time, price}.
func (c *Client) PriceHistory(ctx context.Context, p PriceHistoryParams) (*table.Table, error) {
	if p.Market == "" {
		return nil, fmt.Errorf("clob: price history needs a market token id")
	}
	t, err := c.http.GetTable(ctx, client.SurfaceCLOB, "/prices-history", p.Values())
	if err != nil {
		return nil, err
	}
	points, err := table.Normalize(t, "history", nil, "")
	if err != nil {
		return nil, err
	}

	out := table.New()
	out.Columns = []string{"time", "price"}
	for _, r := range points.Records {
		out.Records = append(out.Records, table.Record{
			"time":  table.ParseTime(r["t"]),
			"price": table.ToDecimal(r["p"]),
		})
	}
	return out, nil
}

func floatField(r table.Record, name string) (float64, error) {
	d := table.ToDecimal(r[name])
	if !d.Valid {
		return 0, fmt.Errorf("clob: field %q is %v, not a number", name, r[name])
	}
	f, _ := d.Decimal.Float64()
	return f, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimJSON(b []byte) []byte {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return []byte(n)
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return []byte(s)
	}
	return b
}
