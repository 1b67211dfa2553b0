package pagination

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the number of pages fetched in parallel per window.
	// Keep it low: the public APIs rate limit per IP.
	MaxConcurrency int

	// Timeout per page fetch (0 = no per-page deadline).
	Timeout time.Duration
}

// DefaultConfig returns a conservative configuration for the public APIs.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// BatchFetcher paginates with speculative parallel windows. For a window of
// n pages it requests offsets offset, offset+limit, ..., offset+(n-1)*limit at
// once, then accepts pages in offset order exactly as Paginate would. A page
// that does not terminate but returns fewer or more than limit records makes
// the remaining speculative offsets stale; they are dropped and the next window
// starts from the actual-count offset.
type BatchFetcher[T any] struct {
	src    Source[T]
	config Config
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher[T any](src Source[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	return &BatchFetcher[T]{
		src:    src,
		config: config,
	}
}

type windowResult[T any] struct {
	page Page[T]
	err  error
}

// FetchAll fetches the whole listing. Ordering, termination and failure
// semantics match Paginate.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, opts Options) ([]T, error) {
	if bf.src.Fetch == nil {
		return nil, errors.New("pagination: source has no fetch function")
	}
	limit, err := EffectiveLimit(bf.src, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	offset := opts.InitialOffset
	records := make([]T, 0)
	pages := 0
	windows := 0

	for {
		window := bf.config.MaxConcurrency
		if opts.MaxPages > 0 && opts.MaxPages-pages < window {
			window = opts.MaxPages - pages
		}

		if windows > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				runsTotal.WithLabelValues("cancelled").Inc()
				return nil, err
			}
		}

		results := bf.fetchWindow(ctx, limit, offset, window)
		windows++

		stop := false
		for i, r := range results {
			pages++
			if r.err != nil {
				runsTotal.WithLabelValues("error").Inc()
				log.Debug().
					Err(r.err).
					Int("page", pages).
					Int("offset", offset).
					Int("records_discarded", len(records)).
					Msg("Page fetch failed, discarding accumulated pages")
				return nil, &PageError{Page: pages, Offset: offset, Limit: limit, Err: r.err}
			}

			n := len(r.page.Records)
			pagesFetchedTotal.Inc()
			recordsFetchedTotal.Add(float64(n))
			records = append(records, r.page.Records...)
			offset += n

			if done(r.page, limit) || (opts.MaxPages > 0 && pages >= opts.MaxPages) {
				stop = true
				break
			}
			if n != limit {
				if dropped := len(results) - i - 1; dropped > 0 {
					log.Debug().
						Int("offset", offset).
						Int("dropped_pages", dropped).
						Msg("Unexpected page size, restarting window at actual offset")
				}
				break
			}
		}
		if stop {
			break
		}
	}

	runsTotal.WithLabelValues("complete").Inc()
	log.Debug().
		Int("pages", pages).
		Int("windows", windows).
		Int("records", len(records)).
		Int("limit", limit).
		Dur("duration", time.Since(start)).
		Msg("Batch pagination complete")

	return records, nil
}

// fetchWindow fetches n speculative pages in parallel; results are indexed by
// position, not completion order.
func (bf *BatchFetcher[T]) fetchWindow(ctx context.Context, limit, offset, n int) []windowResult[T] {
	results := make([]windowResult[T], n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			pageCtx := ctx
			if bf.config.Timeout > 0 {
				var cancel context.CancelFunc
				pageCtx, cancel = context.WithTimeout(ctx, bf.config.Timeout)
				defer cancel()
			}

			page, err := bf.src.Fetch(pageCtx, PageRequest{Limit: limit, Offset: offset + i*limit})
			results[i] = windowResult[T]{page: page, err: err}
		}(i)
	}
	wg.Wait()

	return results
}
