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

// MarketsParams filters GET /markets. Nil pointers and empty values are
// not sent.
type MarketsParams struct {
	Limit     int
	Offset    int
	Order     []string
	Ascending *bool

	ID                 []int
	Slug               []string
	ClobTokenIDs       []string
	ConditionIDs       []string
	MarketMakerAddress []string
	QuestionIDs        []string

	LiquidityNumMin *float64
	LiquidityNumMax *float64
	VolumeNumMin    *float64
	VolumeNumMax    *float64
	RewardsMinSize  *float64

	StartDateMin time.Time
	StartDateMax time.Time
	EndDateMin   time.Time
	EndDateMax   time.Time

	TagID               *int
	RelatedTags         *bool
	IncludeTag          *bool
	Cyom                *bool
	Closed              *bool
	UMAResolutionStatus string
	GameID              string
	SportsMarketTypes   []string

	// ExpandClobTokenIDs emits one row per CLOB token id.
	ExpandClobTokenIDs bool
}

// Values encodes the query string.
func (p MarketsParams) Values() url.Values {
	return client.NewParams().
		Set("limit", limitOr(p.Limit, DefaultMarketsLimit)).
		SetIf(p.Offset > 0, "offset", p.Offset).
		Set("order", p.Order).
		Set("ascending", p.Ascending).
		Set("id", p.ID).
		Set("slug", p.Slug).
		Set("clob_token_ids", p.ClobTokenIDs).
		Set("condition_ids", p.ConditionIDs).
		Set("market_maker_address", p.MarketMakerAddress).
		Set("liquidity_num_min", p.LiquidityNumMin).
		Set("liquidity_num_max", p.LiquidityNumMax).
		Set("volume_num_min", p.VolumeNumMin).
		Set("volume_num_max", p.VolumeNumMax).
		Set("start_date_min", p.StartDateMin).
		Set("start_date_max", p.StartDateMax).
		Set("end_date_min", p.EndDateMin).
		Set("end_date_max", p.EndDateMax).
		Set("tag_id", p.TagID).
		Set("related_tags", p.RelatedTags).
		Set("cyom", p.Cyom).
		Set("uma_resolution_status", p.UMAResolutionStatus).
		Set("game_id", p.GameID).
		Set("sports_market_types", p.SportsMarketTypes).
		Set("rewards_min_size", p.RewardsMinSize).
		Set("question_ids", p.QuestionIDs).
		Set("include_tag", p.IncludeTag).
		Set("closed", p.Closed).
		Values()
}

// Markets returns one page of markets.
func (c *Client) Markets(ctx context.Context, p MarketsParams) (*table.Table, error) {
	t, err := c.list(ctx, "/markets", p.Values())
	if err != nil {
		return nil, err
	}
	if p.ExpandClobTokenIDs {
		t = ExpandClobTokenIDs(t)
	}
	return t, nil
}

// MarketsAll pages through every market matching p.
func (c *Client) MarketsAll(ctx context.Context, p MarketsParams, opts pagination.Options) (*table.Table, error) {
	var expand func(*table.Table) (*table.Table, error)
	if p.ExpandClobTokenIDs {
		expand = func(t *table.Table) (*table.Table, error) { return ExpandClobTokenIDs(t), nil }
	}
	return c.all(ctx, "/markets", p.Values(), DefaultMarketsLimit, opts, expand)
}

// ExpandClobTokenIDs emits one row per token id, with ids as strings.
func ExpandClobTokenIDs(t *table.Table) *table.Table {
	if !t.HasColumn(table.ClobTokenIDsColumn) {
		return t
	}
	out := t.Explode(table.ClobTokenIDsColumn)
	for _, r := range out.Records {
		if v, ok := r[table.ClobTokenIDsColumn]; ok && v != nil {
			r[table.ClobTokenIDsColumn] = fmt.Sprint(v)
		}
	}
	return out
}
