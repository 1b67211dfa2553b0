package gamma

import (
	"context"
	"errors"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// SearchParams are the options of GET /public-search.
type SearchParams struct {
	Cache             *bool
	EventsStatus      string
	LimitPerType      int
	Page              int
	EventsTag         []string
	KeepClosedMarkets *int
	Sort              string
	Ascending         *bool
	SearchTags        *bool
	SearchProfiles    *bool
	Recurrence        string
	ExcludeTagID      []int
	Optimized         *bool
}

func (p SearchParams) values(q string) url.Values {
	return client.NewParams().
		Set("q", q).
		Set("cache", p.Cache).
		Set("events_status", p.EventsStatus).
		SetIf(p.LimitPerType > 0, "limit_per_type", p.LimitPerType).
		SetIf(p.Page > 0, "page", p.Page).
		Set("events_tag", p.EventsTag).
		Set("keep_closed_markets", p.KeepClosedMarkets).
		Set("sort", p.Sort).
		Set("ascending", p.Ascending).
		Set("search_tags", p.SearchTags).
		Set("search_profiles", p.SearchProfiles).
		Set("recurrence", p.Recurrence).
		Set("exclude_tag_id", p.ExcludeTagID).
		Set("optimized", p.Optimized).
		Values()
}

// Search looks up markets, events and profiles. The result keeps the
// response shape: "events", "tags" and "profiles" lists plus pagination.
func (c *Client) Search(ctx context.Context, q string, p SearchParams) (table.Record, error) {
	if q == "" {
		return nil, errors.New("search query is required")
	}
	return c.object(ctx, "/public-search", p.values(q))
}

// SearchEvents runs Search and returns its events as a table.
func (c *Client) SearchEvents(ctx context.Context, q string, p SearchParams) (*table.Table, error) {
	res, err := c.Search(ctx, q, p)
	if err != nil {
		return nil, err
	}
	events, err := table.Normalize(table.FromRecords([]table.Record{res}), "events", nil, "")
	if err != nil {
		return nil, err
	}
	return c.schema.Apply(events), nil
}
