package gamma

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// CommentsParams filters GET /comments.
type CommentsParams struct {
	Limit            int
	Offset           int
	Order            string
	Ascending        *bool
	ParentEntityType string
	ParentEntityID   *int
	GetPositions     *bool
	HoldersOnly      *bool
}

// Values encodes the query string. Comments have no default page size.
func (p CommentsParams) Values() url.Values {
	return client.NewParams().
		SetIf(p.Limit > 0, "limit", p.Limit).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Set("parent_entity_type", p.ParentEntityType).
		Set("parent_entity_id", p.ParentEntityID).
		Set("get_positions", p.GetPositions).
		Set("holders_only", p.HoldersOnly).
		Values()
}

// Comments returns comments matching p.
func (c *Client) Comments(ctx context.Context, p CommentsParams) (*table.Table, error) {
	return c.list(ctx, "/comments", p.Values())
}

// CommentsByUser returns the comments written by a wallet address.
func (c *Client) CommentsByUser(ctx context.Context, address string, p CommentsParams) (*table.Table, error) {
	query := client.NewParams().
		SetIf(p.Limit > 0, "limit", p.Limit).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Values()
	return c.list(ctx, "/comments/user_address/"+url.PathEscape(address), query)
}

// CommentByID returns a single comment.
func (c *Client) CommentByID(ctx context.Context, id int, getPositions *bool) (table.Record, error) {
	return c.object(ctx, fmt.Sprintf("/comments/%d", id), client.NewParams().Set("get_positions", getPositions).Values())
}
