package gamma

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// EventsParams filters GET /events.
type EventsParams struct {
	Limit     int
	Offset    int
	Order     []string
	Ascending *bool

	ID           []int
	Slug         []string
	TagID        *int
	ExcludeTagID []int
	RelatedTags  *bool

	Featured        *bool
	Cyom            *bool
	IncludeChat     *bool
	IncludeTemplate *bool
	Recurrence      string
	Closed          *bool

	StartDateMin time.Time
	StartDateMax time.Time
	EndDateMin   time.Time
	EndDateMax   time.Time
}

// Values encodes the query string.
func (p EventsParams) Values() url.Values {
	return client.NewParams().
		Set("limit", limitOr(p.Limit, DefaultEventsLimit)).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Set("id", p.ID).
		Set("slug", p.Slug).
		Set("tag_id", p.TagID).
		Set("exclude_tag_id", p.ExcludeTagID).
		Set("related_tags", p.RelatedTags).
		Set("featured", p.Featured).
		Set("cyom", p.Cyom).
		Set("include_chat", p.IncludeChat).
		Set("include_template", p.IncludeTemplate).
		Set("recurrence", p.Recurrence).
		Set("closed", p.Closed).
		Set("start_date_min", p.StartDateMin).
		Set("start_date_max", p.StartDateMax).
		Set("end_date_min", p.EndDateMin).
		Set("end_date_max", p.EndDateMax).
		Values()
}

// Events returns one page of events.
func (c *Client) Events(ctx context.Context, p EventsParams) (*table.Table, error) {
	return c.list(ctx, "/events", p.Values())
}

// EventsAll pages through every event matching p.
func (c *Client) EventsAll(ctx context.Context, p EventsParams, opts pagination.Options) (*table.Table, error) {
	return c.all(ctx, "/events", p.Values(), DefaultEventsLimit, opts, nil)
}

// EventParams are the options of the single-event lookups.
type EventParams struct {
	IncludeChat     *bool
	IncludeTemplate *bool
}

func (p EventParams) values() url.Values {
	return client.NewParams().
		Set("include_chat", p.IncludeChat).
		Set("include_template", p.IncludeTemplate).
		Values()
}

// EventByID returns a single event.
func (c *Client) EventByID(ctx context.Context, id int, p EventParams) (table.Record, error) {
	return c.object(ctx, fmt.Sprintf("/events/%d", id), p.values())
}

// EventBySlug returns a single event.
func (c *Client) EventBySlug(ctx context.Context, slug string, p EventParams) (table.Record, error) {
	return c.object(ctx, "/events/slug/"+url.PathEscape(slug), p.values())
}

// EventTags returns the tags of an event.
func (c *Client) EventTags(ctx context.Context, id int) (*table.Table, error) {
	return c.list(ctx, fmt.Sprintf("/events/%d/tags", id), nil)
}
