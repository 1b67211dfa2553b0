package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_cache_hits_total",
		Help: "Total cache hits by surface",
	}, []string{"surface"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_cache_misses_total",
		Help: "Total cache misses by surface",
	}, []string{"surface"})

	cacheStoredBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_cache_stored_bytes",
		Help: "Bytes written to the cache by surface",
	}, []string{"surface"})

	// NotModifiedResponses counts successful revalidations (304).
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polymarket_cache_not_modified_total",
		Help: "Total 304 Not Modified responses served from cache",
	})

	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_cache_errors_total",
		Help: "Total cache operation errors",
	}, []string{"operation"})
)
