// Package ratelimit tracks Polymarket throttling and gates requests.
//
// The Polymarket APIs answer an exhausted budget with 429 Too Many Requests
// and an optional Retry-After header. The tracker turns those responses into
// a per-surface cooldown that every client sharing the same Redis observes.
package ratelimit

import (
	"time"
)

// RedisKeyPrefix namespaces the per-surface state hashes.
const RedisKeyPrefix = "polymarket:ratelimit:"

const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown = 10 * time.Second

	// MaxCooldown caps hostile or malformed Retry-After values.
	MaxCooldown = 5 * time.Minute

	// ThrottleAfter is the number of consecutive 429s after which requests
	// are slowed down even outside a cooldown.
	ThrottleAfter = 3

	// ThrottleDelay is the pause applied while throttling.
	ThrottleDelay = time.Second
)

// State is the rate limit state of one API surface.
type State struct {
	Surface string `json:"surface"`

	// BlockedUntil is the end of the current cooldown (zero when none).
	BlockedUntil time.Time `json:"blocked_until"`

	// Consecutive counts 429 responses since the last success.
	Consecutive int `json:"consecutive"`

	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether a cooldown is active at now.
func (s *State) IsBlocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}

// CooldownRemaining returns the time left in the cooldown, never negative.
func (s *State) CooldownRemaining(now time.Time) time.Duration {
	if d := s.BlockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

// NeedsThrottling reports repeated 429s outside an active cooldown.
func (s *State) NeedsThrottling(now time.Time) bool {
	return s.Consecutive >= ThrottleAfter && !s.IsBlocked(now)
}

// IsHealthy reports a surface with no recent 429.
func (s *State) IsHealthy() bool {
	return s.Consecutive == 0
}

func redisKey(surface string) string {
	return RedisKeyPrefix + surface
}
