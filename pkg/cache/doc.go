// Package cache stores public Polymarket GET responses in Redis.
//
// Gamma, Data and CLOB read endpoints rarely send Expires headers, so the
// entry lifetime is taken from Cache-Control max-age, then Expires, then the
// manager's fallback TTL. ETag and Last-Modified are kept so the client can
// revalidate with a conditional request.
//
// # Basic Usage
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(rdb, 30*time.Second)
//
//	key := cache.Key{
//		Surface:  "gamma",
//		Endpoint: "/markets",
//		Query:    url.Values{"limit": {"500"}, "offset": {"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch upstream, then:
//		entry, _ = manager.EntryFromResponse(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// Authenticated responses must never be cached; the client only consults
// the cache for unsigned GET requests.
//
// # Metrics
//
//   - polymarket_cache_hits_total{surface}
//   - polymarket_cache_misses_total{surface}
//   - polymarket_cache_stored_bytes{surface}
//   - polymarket_cache_not_modified_total
//   - polymarket_cache_errors_total{operation}
package cache
