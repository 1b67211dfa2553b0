package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrStale accompanies an expired entry that can still be revalidated
	// with a conditional request.
	ErrStale = errors.New("cache entry stale")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// StaleWindow is how long revalidatable entries outlive their expiry.
const StaleWindow = 5 * time.Minute

// Manager is a Redis-backed response cache.
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a cache manager. ttl is the lifetime used for responses
// without freshness headers (DefaultTTL when zero).
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{redis: redisClient, ttl: ttl}
}

// FallbackTTL returns the lifetime used for responses without freshness headers.
func (m *Manager) FallbackTTL() time.Duration {
	return m.ttl
}

// EntryFromResponse converts resp using the manager's fallback TTL.
func (m *Manager) EntryFromResponse(resp *http.Response) (*Entry, error) {
	return ResponseToEntry(resp, m.ttl)
}

// Get returns the entry for key, or ErrCacheMiss. An expired entry that
// carries validators is returned together with ErrStale.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheMisses.WithLabelValues(key.Surface).Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		if entry.Revalidatable() {
			cacheMisses.WithLabelValues(key.Surface).Inc()
			return &entry, ErrStale
		}
		_ = m.Delete(ctx, key)
		cacheMisses.WithLabelValues(key.Surface).Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.WithLabelValues(key.Surface).Inc()
	return &entry, nil
}

// Set stores entry until it expires. Expired entries are silently skipped.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return errors.New("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}
	if entry.Revalidatable() {
		ttl += StaleWindow
	}

	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	cacheStoredBytes.WithLabelValues(key.Surface).Add(float64(len(data)))
	return nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh extends a revalidated entry after a 304 response.
func (m *Manager) Refresh(ctx context.Context, key Key, header http.Header) (*Entry, error) {
	entry, err := m.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrStale) {
		return nil, err
	}

	entry.Expires = freshUntil(header, time.Now(), m.ttl)
	if err := m.Set(ctx, key, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Purge removes every entry of a surface and returns the number deleted.
func (m *Manager) Purge(ctx context.Context, surface string) (int, error) {
	var deleted int
	iter := m.redis.Scan(ctx, 0, SurfacePattern(surface), 100).Iterator()
	for iter.Next(ctx) {
		if err := m.redis.Del(ctx, iter.Val()).Err(); err != nil {
			cacheErrors.WithLabelValues("purge").Inc()
			return deleted, fmt.Errorf("redis del: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		cacheErrors.WithLabelValues("purge").Inc()
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	return deleted, nil
}
