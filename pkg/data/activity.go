package data

import (
	"context"
	"errors"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// ActivityParams filters GET /activity. User is required.
type ActivityParams struct {
	User    string
	Limit   int
	Offset  int
	Market  []string
	EventID []int
	Type    []string

	// Start and End are Unix seconds; zero means unbounded.
	Start int64
	End   int64

	SortBy        string
	SortDirection string
	Side          string
}

// Values encodes the query string.
func (p ActivityParams) Values() url.Values {
	return client.NewParams().
		Set("user", p.User).
		Set("limit", limitOr(p.Limit)).
		Set("offset", p.Offset).
		Set("market", p.Market).
		Set("eventId", p.EventID).
		Set("type", p.Type).
		SetIf(p.Start > 0, "start", p.Start).
		SetIf(p.End > 0, "end", p.End).
		Set("sortBy", stringOr(p.SortBy, SortByTimestamp)).
		Set("sortDirection", stringOr(p.SortDirection, SortDesc)).
		Set("side", p.Side).
		Values()
}

func (p ActivityParams) validate() error {
	if len(p.Market) > 0 && len(p.EventID) > 0 {
		return errors.New("activity: market and eventId are mutually exclusive")
	}
	return ValidateAddress(p.User)
}

// Activity returns one page of a user's on-chain activity.
func (c *Client) Activity(ctx context.Context, p ActivityParams) (*table.Table, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.list(ctx, "/activity", p.Values())
}

// ActivityAll pages through a user's activity.
func (c *Client) ActivityAll(ctx context.Context, p ActivityParams, opts pagination.Options) (*table.Table, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.all(ctx, "/activity", p.Values(), opts)
}
