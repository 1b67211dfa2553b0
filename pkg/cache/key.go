package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix is the Redis namespace of every cache entry.
const KeyPrefix = "polymarket:cache"

// Key identifies a cached response.
type Key struct {
	// Surface is the API the response came from ("gamma", "data", "clob").
	Surface string

	// Endpoint is the request path, e.g. "/markets".
	Endpoint string

	// Query holds the request parameters. Repeated values keep their order.
	Query url.Values
}

// String renders a deterministic Redis key.
//
//	polymarket:cache:gamma:markets:active=true:clob_token_ids=1,2:limit=500
func (k Key) String() string {
	parts := []string{KeyPrefix}
	if k.Surface != "" {
		parts = append(parts, k.Surface)
	}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
	}

	return strings.Join(parts, ":")
}

// SurfacePattern matches every key of one surface, for SCAN.
func SurfacePattern(surface string) string {
	return KeyPrefix + ":" + surface + ":*"
}
