package gamma

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// TagsParams filters GET /tags.
type TagsParams struct {
	Limit           int
	Offset          int
	Order           []string
	Ascending       *bool
	IncludeTemplate *bool
	IsCarousel      *bool
}

// Values encodes the query string.
func (p TagsParams) Values() url.Values {
	return client.NewParams().
		Set("limit", limitOr(p.Limit, DefaultTagsLimit)).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Set("include_template", p.IncludeTemplate).
		Set("is_carousel", p.IsCarousel).
		Values()
}

// Tags returns one page of tags.
func (c *Client) Tags(ctx context.Context, p TagsParams) (*table.Table, error) {
	return c.list(ctx, "/tags", p.Values())
}

// TagsAll pages through every tag.
func (c *Client) TagsAll(ctx context.Context, p TagsParams, opts pagination.Options) (*table.Table, error) {
	return c.all(ctx, "/tags", p.Values(), DefaultTagsLimit, opts, nil)
}

// TagByID returns a single tag.
func (c *Client) TagByID(ctx context.Context, id int, includeTemplate *bool) (table.Record, error) {
	return c.object(ctx, fmt.Sprintf("/tags/%d", id), client.NewParams().Set("include_template", includeTemplate).Values())
}

// TagBySlug returns a single tag.
func (c *Client) TagBySlug(ctx context.Context, slug string, includeTemplate *bool) (table.Record, error) {
	return c.object(ctx, "/tags/slug/"+url.PathEscape(slug), client.NewParams().Set("include_template", includeTemplate).Values())
}

// RelatedTagsParams filters GET /tags/{id}/related-tags/tags.
type RelatedTagsParams struct {
	OmitEmpty *bool
	Status    string
}

// RelatedTags returns the tags related to tag id.
func (c *Client) RelatedTags(ctx context.Context, id int, p RelatedTagsParams) (*table.Table, error) {
	query := client.NewParams().
		Set("omit_empty", p.OmitEmpty).
		Set("status", p.Status).
		Values()
	return c.list(ctx, fmt.Sprintf("/tags/%d/related-tags/tags", id), query)
}
