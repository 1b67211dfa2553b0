// Package metrics documents the Prometheus metrics exported by the client.
// The metrics themselves are registered with promauto in the packages that
// own them (client, cache, ratelimit, pagination, stream).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics
//
// Requests (pkg/client):
//   - polymarket_requests_total{surface, method, status}
//   - polymarket_request_duration_seconds{surface}
//   - polymarket_errors_total{class}
//   - polymarket_retries_total{error_class}
//   - polymarket_retry_backoff_seconds{error_class}
//   - polymarket_retry_exhausted_total{error_class}
//
// Rate limiting (pkg/ratelimit):
//   - polymarket_rate_limited_total{surface}
//   - polymarket_rate_limit_cooldown_seconds{surface}
//   - polymarket_rate_limit_blocks_total{surface}
//   - polymarket_rate_limit_throttles_total{surface}
//
// Cache (pkg/cache):
//   - polymarket_cache_hits_total{surface}
//   - polymarket_cache_misses_total{surface}
//   - polymarket_cache_stored_bytes{surface}
//   - polymarket_cache_not_modified_total
//   - polymarket_cache_errors_total{operation}
//
// Pagination (pkg/pagination):
//   - polymarket_pagination_pages_total
//   - polymarket_pagination_records_total
//   - polymarket_pagination_runs_total{outcome}
//
// Streaming (pkg/stream):
//   - polymarket_stream_messages_total{channel}
//   - polymarket_stream_reconnects_total{channel}
//
// Example queries:
//
//	# Cache hit rate per surface
//	sum by (surface) (rate(polymarket_cache_hits_total[5m])) /
//	(sum by (surface) (rate(polymarket_cache_hits_total[5m])) +
//	 sum by (surface) (rate(polymarket_cache_misses_total[5m])))
//
//	# 429s per minute
//	sum by (surface) (rate(polymarket_rate_limited_total[1m])) * 60
//
//	# P95 latency
//	histogram_quantile(0.95, rate(polymarket_request_duration_seconds_bucket[5m]))
