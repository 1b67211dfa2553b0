package gamma

import (
	"context"
	"net/url"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// TeamsParams filters GET /teams.
type TeamsParams struct {
	Limit        int
	Offset       int
	Order        []string
	Ascending    *bool
	League       []string
	Name         []string
	Abbreviation []string
}

// Values encodes the query string.
func (p TeamsParams) Values() url.Values {
	return client.NewParams().
		Set("limit", limitOr(p.Limit, DefaultTeamsLimit)).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Set("league", p.League).
		Set("name", p.Name).
		Set("abbreviation", p.Abbreviation).
		Values()
}

// Teams returns one page of sports teams.
func (c *Client) Teams(ctx context.Context, p TeamsParams) (*table.Table, error) {
	return c.list(ctx, "/teams", p.Values())
}

// TeamsAll pages through every team.
func (c *Client) TeamsAll(ctx context.Context, p TeamsParams, opts pagination.Options) (*table.Table, error) {
	return c.all(ctx, "/teams", p.Values(), DefaultTeamsLimit, opts, nil)
}

// SportsParams filters GET /sports.
type SportsParams struct {
	Sport      string
	Image      string
	Resolution string
	Ordering   string
	Tags       string
	Series     string
}

// SportsMetadata returns the sports metadata listing.
func (c *Client) SportsMetadata(ctx context.Context, p SportsParams) (*table.Table, error) {
	query := client.NewParams().
		Set("sport", p.Sport).
		Set("image", p.Image).
		Set("resolution", p.Resolution).
		Set("ordering", p.Ordering).
		Set("tags", p.Tags).
		Set("series", p.Series).
		Values()
	return c.list(ctx, "/sports", query)
}
