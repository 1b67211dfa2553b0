package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination runs.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_pagination_pages_total",
		Help: "Total pages fetched by the paginator",
	})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_pagination_records_total",
		Help: "Total records collected by the paginator",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_pagination_runs_total",
		Help: "Pagination runs by outcome",
	}, []string{"outcome"})
)

// ErrNoLimit is returned when neither the options nor the source define a limit.
var ErrNoLimit = errors.New("pagination: no limit configured")

// PageRequest is the cursor handed to a fetch.
type PageRequest struct {
	Limit  int
	Offset int
}

// MoreHint is an optional server signal about further pages.
type MoreHint int

const (
	// MoreUnknown applies the short-page rule.
	MoreUnknown MoreHint = iota
	// MoreYes continues even when the page is short.
	MoreYes
	// MoreNo stops after this page.
	MoreNo
)

// Page is one fetched page.
type Page[T any] struct {
	Records []T
	More    MoreHint
}

// FetchFunc fetches a single page.
type FetchFunc[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

// Source pairs a fetch with the limit the endpoint uses when none is given.
type Source[T any] struct {
	Fetch        FetchFunc[T]
	DefaultLimit int
}

// Options tune a pagination run. Zero values mean "use defaults".
type Options struct {
	// Limit overrides Source.DefaultLimit.
	Limit int

	// InitialOffset is the offset of the first page.
	InitialOffset int

	// MaxPages stops the run after this many pages (0 = unlimited).
	MaxPages int

	// Delay is waited between pages, never after the last one.
	Delay time.Duration
}

// PageError wraps a fetch failure with the cursor it happened at.
type PageError struct {
	Page   int
	Offset int
	Limit  int
	Err    error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("fetch page %d (offset %d, limit %d): %v", e.Page, e.Offset, e.Limit, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// EffectiveLimit resolves the limit for a run.
func EffectiveLimit[T any](src Source[T], opts Options) (int, error) {
	if opts.Limit > 0 {
		return opts.Limit, nil
	}
	if src.DefaultLimit > 0 {
		return src.DefaultLimit, nil
	}
	return 0, ErrNoLimit
}

// Paginate fetches pages sequentially until the listing is exhausted and
// returns every record in offset order. It never returns partial results.
func Paginate[T any](ctx context.Context, src Source[T], opts Options) ([]T, error) {
	if src.Fetch == nil {
		return nil, errors.New("pagination: source has no fetch function")
	}
	limit, err := EffectiveLimit(src, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	offset := opts.InitialOffset
	records := make([]T, 0)
	pages := 0

	for {
		if pages > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				runsTotal.WithLabelValues("cancelled").Inc()
				return nil, err
			}
		}

		page, err := src.Fetch(ctx, PageRequest{Limit: limit, Offset: offset})
		pages++
		if err != nil {
			runsTotal.WithLabelValues("error").Inc()
			log.Debug().
				Err(err).
				Int("page", pages).
				Int("offset", offset).
				Int("records_discarded", len(records)).
				Msg("Page fetch failed, discarding accumulated pages")
			return nil, &PageError{Page: pages, Offset: offset, Limit: limit, Err: err}
		}

		n := len(page.Records)
		pagesFetchedTotal.Inc()
		recordsFetchedTotal.Add(float64(n))
		records = append(records, page.Records...)
		offset += n

		if done(page, limit) || (opts.MaxPages > 0 && pages >= opts.MaxPages) {
			break
		}
	}

	runsTotal.WithLabelValues("complete").Inc()
	log.Debug().
		Int("pages", pages).
		Int("records", len(records)).
		Int("limit", limit).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return records, nil
}

// done reports whether page terminates the listing.
func done[T any](page Page[T], limit int) bool {
	n := len(page.Records)
	switch {
	case n == 0:
		return true
	case page.More == MoreNo:
		return true
	case page.More == MoreYes:
		return false
	default:
		return n < limit
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
