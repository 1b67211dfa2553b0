package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// HoldersParams filters GET /holders.
type HoldersParams struct {
	Limit int

	// MinBalance defaults to 1 when nil.
	MinBalance *int
}

// Holders returns the top holders of the given markets (condition ids).
// The response groups holders per token; rows are flattened with the token
// id alongside each holder.
func (c *Client) Holders(ctx context.Context, market []string, p HoldersParams) (*table.Table, error) {
	if len(market) == 0 {
		return nil, errors.New("holders: at least one market is required")
	}
	minBalance := 1
	if p.MinBalance != nil {
		minBalance = *p.MinBalance
	}
	query := client.NewParams().
		Set("market", market).
		Set("limit", limitOr(p.Limit)).
		Set("minBalance", minBalance).
		Values()

	t, err := c.http.GetTable(ctx, client.SurfaceData, "/holders", query)
	if err != nil {
		return nil, err
	}
	if t.HasColumn("holders") {
		if t, err = table.Normalize(t, "holders", table.MetaExcept(t, "holders"), ""); err != nil {
			return nil, fmt.Errorf("flatten holders: %w", err)
		}
	}
	return c.schema.Apply(t), nil
}

// TradedCount returns the number of markets a user has traded.
func (c *Client) TradedCount(ctx context.Context, user string) (table.Record, error) {
	if err := ValidateAddress(user); err != nil {
		return nil, err
	}
	return c.http.GetRecord(ctx, client.SurfaceData, "/traded", client.NewParams().Set("user", user).Values())
}

// OpenInterest returns the open interest of the given markets, or of all
// markets when none are given.
func (c *Client) OpenInterest(ctx context.Context, market ...string) (*table.Table, error) {
	return c.list(ctx, "/oi", client.NewParams().Set("market", market).Values())
}

// LiveVolume returns the live volume of an event.
func (c *Client) LiveVolume(ctx context.Context, eventID int) (*table.Table, error) {
	if eventID < 1 {
		return nil, fmt.Errorf("live volume: event id must be >= 1 (got %d)", eventID)
	}
	return c.list(ctx, "/live-volume", client.NewParams().Set("id", eventID).Values())
}
