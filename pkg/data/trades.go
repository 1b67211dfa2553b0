package data

import (
	"context"
	"errors"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// TradesParams filters GET /trades. Market and EventID are mutually
// exclusive.
type TradesParams struct {
	Limit  int
	Offset int

	// TakerOnly defaults to true when nil.
	TakerOnly    *bool
	FilterType   string
	FilterAmount *float64
	Market       []string
	EventID      []int
	User         string
	Side         string
}

// Values encodes the query string.
func (p TradesParams) Values() url.Values {
	takerOnly := true
	if p.TakerOnly != nil {
		takerOnly = *p.TakerOnly
	}
	return client.NewParams().
		Set("limit", limitOr(p.Limit)).
		Set("offset", p.Offset).
		Set("takerOnly", takerOnly).
		Set("filterType", p.FilterType).
		Set("filterAmount", p.FilterAmount).
		Set("market", p.Market).
		Set("eventId", p.EventID).
		Set("user", p.User).
		Set("side", p.Side).
		Values()
}

func (p TradesParams) validate() error {
	if len(p.Market) > 0 && len(p.EventID) > 0 {
		return errors.New("trades: market and eventId are mutually exclusive")
	}
	if (p.FilterType == "") != (p.FilterAmount == nil) {
		return errors.New("trades: filterType and filterAmount must be set together")
	}
	if p.User != "" {
		return ValidateAddress(p.User)
	}
	return nil
}

// Trades returns one page of trades.
func (c *Client) Trades(ctx context.Context, p TradesParams) (*table.Table, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.list(ctx, "/trades", p.Values())
}

// TradesAll pages through every trade matching p.
func (c *Client) TradesAll(ctx context.Context, p TradesParams, opts pagination.Options) (*table.Table, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.all(ctx, "/trades", p.Values(), opts)
}
