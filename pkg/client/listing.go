package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// Listing is an offset/limit endpoint.
type Listing struct {
	Surface Surface
	Path    string

	// Query holds the filters; limit and offset are set per page.
	Query url.Values

	// DefaultLimit is the page size used when the run sets none.
	DefaultLimit int

	// Transform runs once on the assembled rows (schema coercion,
	// flattening). Pages are counted before it runs.
	Transform func(*table.Table) (*table.Table, error)
}

// GetTable fetches path and decodes the payload into a table.
func (c *Client) GetTable(ctx context.Context, s Surface, path string, query url.Values) (*table.Table, error) {
	body, err := c.Get(ctx, s, path, query)
	if err != nil {
		return nil, err
	}
	t, err := table.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s, path, err)
	}
	return t, nil
}

// GetRecord fetches path and decodes a single JSON object.
func (c *Client) GetRecord(ctx context.Context, s Surface, path string, query url.Values) (table.Record, error) {
	body, err := c.Get(ctx, s, path, query)
	if err != nil {
		return nil, err
	}
	r, err := table.DecodeObject(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s, path, err)
	}
	return r, nil
}

// FetchPage fetches one page of l and applies its transform.
func (c *Client) FetchPage(ctx context.Context, l Listing, req pagination.PageRequest) (*table.Table, error) {
	t, err := c.GetTable(ctx, l.Surface, l.Path, pageQuery(l.Query, req))
	if err != nil {
		return nil, err
	}
	return l.transform(t)
}

// FetchAll pages through l sequentially.
func (c *Client) FetchAll(ctx context.Context, l Listing, opts pagination.Options) (*table.Table, error) {
	rows, err := pagination.Paginate(ctx, c.source(l), opts)
	if err != nil {
		return nil, err
	}
	return l.transform(assemble(rows))
}

// FetchAllConcurrent pages through l with a BatchFetcher. Row order is the
// same as FetchAll.
func (c *Client) FetchAllConcurrent(ctx context.Context, l Listing, opts pagination.Options, cfg pagination.Config) (*table.Table, error) {
	rows, err := pagination.NewBatchFetcher(c.source(l), cfg).FetchAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	return l.transform(assemble(rows))
}

func (l Listing) transform(t *table.Table) (*table.Table, error) {
	if l.Transform == nil {
		return t, nil
	}
	return l.Transform(t)
}

// pageRow keeps the column order of the page a record came from.
type pageRow struct {
	offset  int
	columns []string
	record  table.Record
}

func (c *Client) source(l Listing) pagination.Source[pageRow] {
	return pagination.Source[pageRow]{
		DefaultLimit: l.DefaultLimit,
		Fetch: func(ctx context.Context, req pagination.PageRequest) (pagination.Page[pageRow], error) {
			t, err := c.GetTable(ctx, l.Surface, l.Path, pageQuery(l.Query, req))
			if err != nil {
				return pagination.Page[pageRow]{}, err
			}
			rows := make([]pageRow, len(t.Records))
			for i, r := range t.Records {
				rows[i] = pageRow{offset: req.Offset, columns: t.Columns, record: r}
			}
			return pagination.Page[pageRow]{Records: rows}, nil
		},
	}
}

func assemble(rows []pageRow) *table.Table {
	out := table.New()
	seen := make(map[string]bool)
	last := -1
	for _, row := range rows {
		if row.offset != last {
			last = row.offset
			for _, col := range row.columns {
				if !seen[col] {
					seen[col] = true
					out.Columns = append(out.Columns, col)
				}
			}
		}
		out.Records = append(out.Records, row.record)
	}
	return out
}

func pageQuery(base url.Values, req pagination.PageRequest) url.Values {
	q := make(url.Values, len(base)+2)
	for k, vs := range base {
		q[k] = append([]string(nil), vs...)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	q.Set("offset", strconv.Itoa(req.Offset))
	return q
}
