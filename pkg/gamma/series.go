package gamma

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// EventPrefix prefixes event columns when series are expanded.
const EventPrefix = "event_"

// SeriesParams filters GET /series.
type SeriesParams struct {
	Limit            int
	Offset           int
	Order            []string
	Ascending        *bool
	Slug             []string
	CategoriesIDs    []int
	CategoriesLabels []string
	Closed           *bool
	IncludeChat      *bool
	Recurrence       string

	// KeepEvents disables the one-row-per-event expansion.
	KeepEvents bool
}

// Values encodes the query string.
func (p SeriesParams) Values() url.Values {
	return client.NewParams().
		Set("limit", limitOr(p.Limit, DefaultSeriesLimit)).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Set("slug", p.Slug).
		Set("categories_ids", p.CategoriesIDs).
		Set("categories_labels", p.CategoriesLabels).
		Set("closed", p.Closed).
		Set("include_chat", p.IncludeChat).
		Set("recurrence", p.Recurrence).
		Values()
}

// Series returns one page of series. Unless KeepEvents is set, each row is
// one event of a series: event fields carry the event_ prefix (camelCased
// to eventXxx by the schema) next to the series fields.
func (c *Client) Series(ctx context.Context, p SeriesParams) (*table.Table, error) {
	t, err := c.http.GetTable(ctx, client.SurfaceGamma, "/series", p.Values())
	if err != nil {
		return nil, err
	}
	return c.seriesTransform(p)(t)
}

// SeriesAll pages through every series. Pages are counted in series, not
// in expanded event rows.
func (c *Client) SeriesAll(ctx context.Context, p SeriesParams, opts pagination.Options) (*table.Table, error) {
	query := p.Values()
	if opts.Limit == 0 {
		opts.Limit = limitOr(p.Limit, DefaultSeriesLimit)
	}
	if opts.InitialOffset == 0 {
		opts.InitialOffset = p.Offset
	}
	query.Del("limit")
	query.Del("offset")

	return c.http.FetchAll(ctx, client.Listing{
		Surface:      client.SurfaceGamma,
		Path:         "/series",
		Query:        query,
		DefaultLimit: DefaultSeriesLimit,
		Transform:    c.seriesTransform(p),
	}, opts)
}

func (c *Client) seriesTransform(p SeriesParams) func(*table.Table) (*table.Table, error) {
	return func(t *table.Table) (*table.Table, error) {
		if !p.KeepEvents {
			expanded, err := table.Normalize(t, "events", table.MetaExcept(t, "events"), EventPrefix)
			if err != nil {
				return nil, fmt.Errorf("expand series events: %w", err)
			}
			t = expanded
		}
		return c.schema.Apply(t), nil
	}
}

// SeriesByID returns a single series.
func (c *Client) SeriesByID(ctx context.Context, id int, includeChat *bool) (table.Record, error) {
	return c.object(ctx, fmt.Sprintf("/series/%d", id), client.NewParams().Set("include_chat", includeChat).Values())
}
