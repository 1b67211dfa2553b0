package clob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// Order types.
const (
	OrderTypeGTC = "GTC"
	OrderTypeGTD = "GTD"
	OrderTypeFOK = "FOK"
	OrderTypeFAK = "FAK"
)

// MaxBatchOrders is the most orders POST /orders accepts.
const MaxBatchOrders = 15

// endCursor marks the last page of a cursor listing.
const endCursor = "LTE="

// ErrTooManyOrders is returned by PlaceOrders for batches over MaxBatchOrders.
var ErrTooManyOrders = errors.New("clob: too many orders in batch")

// SignedOrder is an order already signed by the maker. Building and
// signing orders happens outside this package.
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// OrderRequest is the body of POST /order and one item of POST /orders.
// Order may be a SignedOrder, a signing.Fields or raw JSON.
type OrderRequest struct {
	Order     any    `json:"order"`
	Owner     string `json:"owner"`
	OrderType string `json:"orderType"`
}

// TradesParams filters GET /data/trades.
type TradesParams struct {
	ID     string
	Taker  string
	Maker  string
	Market string
	Before string
	After  string
}

// Values encodes the query string.
func (p TradesParams) Values() url.Values {
	return client.NewParams().
		Set("id", p.ID).
		Set("taker", p.Taker).
		Set("maker", p.Maker).
		Set("market", p.Market).
		Set("before", p.Before).
		Set("after", p.After).
		Values()
}

// OrdersParams filters GET /data/orders.
type OrdersParams struct {
	ID      string
	Market  string
	AssetID string
}

// Values encodes the query string.
func (p OrdersParams) Values() url.Values {
	return client.NewParams().
		Set("id", p.ID).
		Set("market", p.Market).
		Set("asset_id", p.AssetID).
		Values()
}

// UserTrades returns the authenticated user's trades, following the
// cursor to the last page.
func (c *Client) UserTrades(ctx context.Context, p TradesParams) (*table.Table, error) {
	return c.cursorList(ctx, "/data/trades", p.Values())
}

// ActiveOrders returns the user's open orders.
func (c *Client) ActiveOrders(ctx context.Context, p OrdersParams) (*table.Table, error) {
	return c.cursorList(ctx, "/data/orders", p.Values())
}

// Order returns one order by id.
func (c *Client) Order(ctx context.Context, orderID string) (table.Record, error) {
	if orderID == "" {
		return nil, fmt.Errorf("clob: empty order id")
	}
	return c.signedRecord(ctx, http.MethodGet, "/data/order/"+url.PathEscape(orderID), nil, nil)
}

// PlaceOrder posts one signed order. An empty Owner is filled with the
// current API key.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (table.Record, error) {
	req, err := c.withOwner(req)
	if err != nil {
		return nil, err
	}
	return c.signedRecord(ctx, http.MethodPost, "/order", nil, req)
}

// PlaceOrders posts up to MaxBatchOrders signed orders in one request.
func (c *Client) PlaceOrders(ctx context.Context, reqs []OrderRequest) (*table.Table, error) {
	if len(reqs) == 0 {
		return table.New(), nil
	}
	if len(reqs) > MaxBatchOrders {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyOrders, len(reqs), MaxBatchOrders)
	}

	batch := make([]OrderRequest, len(reqs))
	for i, r := range reqs {
		owned, err := c.withOwner(r)
		if err != nil {
			return nil, err
		}
		batch[i] = owned
	}

	body, err := c.signed(ctx, http.MethodPost, "/orders", nil, batch)
	if err != nil {
		return nil, err
	}
	t, err := table.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("clob /orders: %w", err)
	}
	return c.schema.Apply(t), nil
}

// CancelOrder cancels one order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (table.Record, error) {
	body := struct {
		OrderID string `json:"orderID"`
	}{orderID}
	return c.signedRecord(ctx, http.MethodDelete, "/order", nil, body)
}

// CancelOrders cancels several orders by id.
func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) (table.Record, error) {
	if orderIDs == nil {
		orderIDs = []string{}
	}
	return c.signedRecord(ctx, http.MethodDelete, "/orders", nil, orderIDs)
}

// CancelAll cancels every open order of the user.
func (c *Client) CancelAll(ctx context.Context) (table.Record, error) {
	return c.signedRecord(ctx, http.MethodDelete, "/cancel-all", nil, nil)
}

// CancelMarketOrders cancels the user's orders in a market, an asset, or
// both. Empty arguments are omitted from the body.
func (c *Client) CancelMarketOrders(ctx context.Context, market, assetID string) (table.Record, error) {
	body := struct {
		Market  string `json:"market,omitempty"`
		AssetID string `json:"asset_id,omitempty"`
	}{market, assetID}
	return c.signedRecord(ctx, http.MethodDelete, "/cancel-market-orders", nil, body)
}

func (c *Client) withOwner(req OrderRequest) (OrderRequest, error) {
	if req.Order == nil {
		return req, fmt.Errorf("clob: order request without order")
	}
	if req.OrderType == "" {
		req.OrderType = OrderTypeGTC
	}
	if req.Owner == "" {
		cred, ok := c.APICredential()
		if !ok {
			return req, ErrNoAPICredential
		}
		req.Owner = cred.Key
	}
	return req, nil
}

func (c *Client) signedRecord(ctx context.Context, method, path string, query url.Values, body any) (table.Record, error) {
	data, err := c.signed(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	r, err := table.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("clob %s: %w", path, err)
	}
	return r, nil
}

// cursorList pages through a signed listing. Responses are either a plain
// array or {"data": [...], "next_cursor": "..."}; the listing ends at the
// end cursor, an empty cursor or a repeated one.
func (c *Client) cursorList(ctx context.Context, path string, query url.Values) (*table.Table, error) {
	var pages []*table.Table
	seen := make(map[string]bool)
	cursor := ""

	for page := 0; ; page++ {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		if cursor != "" {
			q.Set("next_cursor", cursor)
		}

		body, err := c.signed(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}
		t, err := table.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("clob %s: %w", path, err)
		}

		if t.Len() != 1 || !t.HasColumn("data") {
			pages = append(pages, t)
			break
		}

		rows, err := table.Normalize(t, "data", nil, "")
		if err != nil {
			return nil, fmt.Errorf("clob %s: %w", path, err)
		}
		pages = append(pages, rows)

		next, _ := t.Records[0]["next_cursor"].(string)
		c.logger.Debug().Str(logging.FieldEndpoint, path).Int(logging.FieldPage, page).Str("next_cursor", next).Msg("Fetched cursor page")
		if next == "" || next == endCursor || seen[next] {
			break
		}
		seen[next] = true
		cursor = next
	}

	return c.schema.Apply(table.Concat(pages...)), nil
}
