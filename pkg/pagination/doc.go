// Package pagination drives offset/limit listings to completion.
//
// Polymarket listings (Gamma markets, events, tags; Data API positions, trades,
// activity) expose no total count. A page shorter than the requested limit is
// the only end-of-data signal, so the effective limit must stay fixed for a run.
//
// Example usage:
//
//	src := pagination.Source[table.Record]{
//		DefaultLimit: 500,
//		Fetch: func(ctx context.Context, req pagination.PageRequest) (pagination.Page[table.Record], error) {
//			t, err := gammaClient.Markets(ctx, gamma.MarketsParams{Limit: req.Limit, Offset: req.Offset})
//			if err != nil {
//				return pagination.Page[table.Record]{}, err
//			}
//			return pagination.Page[table.Record]{Records: t.Records}, nil
//		},
//	}
//	records, err := pagination.Paginate(ctx, src, pagination.Options{MaxPages: 10})
//
// The paginator:
//   - Uses Options.Limit, or the source's DefaultLimit
//   - Advances the offset by the number of records actually returned
//   - Stops on an empty page, a short page, a server "no more" hint or MaxPages
//   - Returns no partial results: a failing page fails the whole run
//
// BatchFetcher fetches speculative windows of pages in parallel while
// keeping the concatenation in offset order.
package pagination
