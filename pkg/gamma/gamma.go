// Package gamma reads market metadata from the Polymarket Gamma API:
// markets, events, series, tags, comments, search and sports.
//
// Listings come back as schema-coerced tables. The *All variants page
// through a listing with the endpoint's default page size.
package gamma

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
	"github.com/rs/zerolog"
)

// Default page sizes.
const (
	DefaultMarketsLimit = 500
	DefaultTagsLimit    = 300
	DefaultEventsLimit  = 500
	DefaultSeriesLimit  = 500
	DefaultTeamsLimit   = 500
)

// Client is the Gamma API client.
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
		logger: logging.ForSurface(logging.NewLogger("gamma"), string(client.SurfaceGamma)),
	}
}

// WithSchema returns a copy using schema for coercion.
func (c *Client) WithSchema(schema table.Schema) *Client {
	cp := *c
	cp.schema = schema
	return &cp
}

func (c *Client) list(ctx context.Context, path string, query url.Values) (*table.Table, error) {
	t, err := c.http.GetTable(ctx, client.SurfaceGamma, path, query)
	if err != nil {
		return nil, err
	}
	return c.schema.Apply(t), nil
}

func (c *Client) object(ctx context.Context, path string, query url.Values) (table.Record, error) {
	return c.http.GetRecord(ctx, client.SurfaceGamma, path, query)
}

// all pages through path. The page size is opts.Limit, then the limit of
// the params, then def.
func (c *Client) all(ctx context.Context, path string, query url.Values, def int, opts pagination.Options,
	transform func(*table.Table) (*table.Table, error)) (*table.Table, error) {
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
		Surface:      client.SurfaceGamma,
		Path:         path,
		Query:        query,
		DefaultLimit: def,
		Transform: func(t *table.Table) (*table.Table, error) {
			t = c.schema.Apply(t)
			if transform != nil {
				return transform(t)
			}
			return t, nil
		},
	}, opts)
}

func limitOr(limit, def int) int {
	if limit > 0 {
		return limit
	}
	return def
}
