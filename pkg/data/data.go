// Package data reads account level data from the Polymarket Data API:
// positions, trades, activity, holders, open interest and volume.
package data

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// DefaultLimit is the page size of every Data API listing.
const DefaultLimit = 100

// ErrInvalidAddress is returned for user addresses that are not 0x-prefixed
// 20-byte hex strings.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Client is the Data API client.
type Client struct {
	http   *client.Client
	schema table.Schema
	logger zerolog.Logger
}

// New wraps an HTTP core client.
func New(c *client.Client) *Client {
	return &Client{
		http:   c,
		schema: table.DefaultSchema(),
		logger: logging.ForSurface(logging.NewLogger("data"), string(client.SurfaceData)),
	}
}

// ValidateAddress checks a user wallet address.
func ValidateAddress(addr string) error {
	if len(addr) != 42 || !common.IsHexAddress(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}

func (c *Client) list(ctx context.Context, path string, query url.Values) (*table.Table, error) {
	t, err := c.http.GetTable(ctx, client.SurfaceData, path, query)
	if err != nil {
		return nil, err
	}
	return c.schema.Apply(t), nil
}

func (c *Client) all(ctx context.Context, path string, query url.Values, opts pagination.Options) (*table.Table, error) {
	if opts.Limit == 0 {
		opts.Limit, _ = strconv.Atoi(query.Get("limit"))
	}
	if opts.InitialOffset == 0 {
		opts.InitialOffset, _ = strconv.Atoi(query.Get("offset"))
	}
	query.Del("limit")
	query.Del("offset")

	c.logger.Debug().
		Str(logging.FieldEndpoint, path).
		Int(logging.FieldLimit, opts.Limit).
		Msg("Paginating listing")

	return c.http.FetchAll(ctx, client.Listing{
		Surface:      client.SurfaceData,
		Path:         path,
		Query:        query,
		DefaultLimit: DefaultLimit,
		Transform: func(t *table.Table) (*table.Table, error) {
			return c.schema.Apply(t), nil
		},
	}, opts)
}

func limitOr(limit int) int {
	if limit > 0 {
		return limit
	}
	return DefaultLimit
}
