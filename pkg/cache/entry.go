package cache

import (
	"net/http"
	"time"
)

// Entry is a cached upstream response.
type Entry struct {
	Data         []byte      `json:"data"`
	ETag         string      `json:"etag,omitempty"`
	Expires      time.Time   `json:"expires"`
	LastModified time.Time   `json:"last_modified,omitempty"`
	StatusCode   int         `json:"status_code"`
	Headers      http.Header `json:"headers,omitempty"`
	CachedAt     time.Time   `json:"cached_at"`
}

// IsExpired reports whether the entry is stale.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining lifetime, never negative.
func (e *Entry) TTL() time.Duration {
	if ttl := time.Until(e.Expires); ttl > 0 {
		return ttl
	}
	return 0
}

// Revalidatable reports whether a conditional request can be made for it.
func (e *Entry) Revalidatable() bool {
	return e != nil && (e.ETag != "" || !e.LastModified.IsZero())
}
