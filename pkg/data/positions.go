package data

import (
	"context"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// Sort fields and directions accepted by the Data API.
const (
	SortByTokens    = "TOKENS"
	SortByTimestamp = "TIMESTAMP"
	SortDesc        = "DESC"
	SortAsc         = "ASC"
)

// PositionsParams filters GET /positions. User is required.
type PositionsParams struct {
	User    string
	Market  []string
	EventID []int

	// SizeThreshold defaults to 1 when nil.
	SizeThreshold *float64
	Redeemable    bool
	Mergeable     bool

	Limit         int
	Offset        int
	SortBy        string
	SortDirection string
	Title         string
}

// Values encodes the query string.
func (p PositionsParams) Values() url.Values {
	threshold := 1.0
	if p.SizeThreshold != nil {
		threshold = *p.SizeThreshold
	}
	return client.NewParams().
		Set("user", p.User).
		Set("market", p.Market).
		Set("eventId", p.EventID).
		Set("sizeThreshold", threshold).
		Set("redeemable", p.Redeemable).
		Set("mergeable", p.Mergeable).
		Set("limit", limitOr(p.Limit)).
		Set("offset", p.Offset).
		Set("sortBy", stringOr(p.SortBy, SortByTokens)).
		Set("sortDirection", stringOr(p.SortDirection, SortDesc)).
		Set("title", p.Title).
		Values()
}

// Positions returns one page of a user's positions.
func (c *Client) Positions(ctx context.Context, p PositionsParams) (*table.Table, error) {
	if err := ValidateAddress(p.User); err != nil {
		return nil, err
	}
	return c.list(ctx, "/positions", p.Values())
}

// PositionsAll pages through every position of a user.
func (c *Client) PositionsAll(ctx context.Context, p PositionsParams, opts pagination.Options) (*table.Table, error) {
	if err := ValidateAddress(p.User); err != nil {
		return nil, err
	}
	return c.all(ctx, "/positions", p.Values(), opts)
}

func stringOr(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
