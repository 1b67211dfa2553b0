package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	cooldownSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polymarket_rate_limit_cooldown_seconds",
		Help: "Length of the last cooldown imposed by a 429 response",
	}, []string{"surface"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_rate_limited_total",
		Help: "Total 429 responses by surface",
	}, []string{"surface"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_rate_limit_blocks_total",
		Help: "Total requests rejected or delayed by an active cooldown",
	}, []string{"surface"})

	rateLimitThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_rate_limit_throttles_total",
		Help: "Total requests slowed down after repeated 429s",
	}, []string{"surface"})
)

// stateTTL bounds how long an idle surface's state survives in Redis.
const stateTTL = time.Hour

// Tracker records 429 responses and gates requests per surface.
// With a nil Redis client the state lives in process memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	memory map[string]State
}

// NewTracker creates a tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
		memory: make(map[string]State),
	}
}

// Shared reports whether state is shared through Redis.
func (t *Tracker) Shared() bool {
	return t.redis != nil
}

// GetState returns the state of surface; unknown surfaces are healthy.
func (t *Tracker) GetState(ctx context.Context, surface string) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.memory[surface]
		state.Surface = surface
		return &state, nil
	}

	fields, err := t.redis.HGetAll(ctx, redisKey(surface)).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	state := &State{Surface: surface}
	if len(fields) == 0 {
		return state, nil
	}

	if v := fields["blocked_until"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse blocked_until: %w", err)
		}
		state.BlockedUntil = time.UnixMilli(ms)
	}
	if v := fields["consecutive"]; v != "" {
		if state.Consecutive, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parse consecutive: %w", err)
		}
	}
	if v := fields["last_update"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last_update: %w", err)
		}
		state.LastUpdate = time.UnixMilli(ms)
	}

	return state, nil
}

// UpdateFromResponse folds a response status into the surface state.
// A 429 starts a cooldown from Retry-After; a success clears the streak.
func (t *Tracker) UpdateFromResponse(ctx context.Context, surface string, status int, headers http.Header) error {
	now := t.now()

	if status != http.StatusTooManyRequests {
		if status >= 400 {
			return nil
		}
		return t.clear(ctx, surface, now)
	}

	cooldown := ParseRetryAfter(headers.Get("Retry-After"), now)
	blockedUntil := now.Add(cooldown)

	var consecutive int
	if t.redis == nil {
		t.mu.Lock()
		state := t.memory[surface]
		state.Consecutive++
		if blockedUntil.After(state.BlockedUntil) {
			state.BlockedUntil = blockedUntil
		}
		state.LastUpdate = now
		t.memory[surface] = state
		consecutive = state.Consecutive
		t.mu.Unlock()
	} else {
		key := redisKey(surface)
		pipe := t.redis.TxPipeline()
		incr := pipe.HIncrBy(ctx, key, "consecutive", 1)
		pipe.HSet(ctx, key,
			"blocked_until", blockedUntil.UnixMilli(),
			"last_update", now.UnixMilli(),
		)
		pipe.Expire(ctx, key, stateTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store rate limit state in redis: %w", err)
		}
		consecutive = int(incr.Val())
	}

	rateLimitedTotal.WithLabelValues(surface).Inc()
	cooldownSeconds.WithLabelValues(surface).Set(cooldown.Seconds())

	t.logger.Warn().
		Str("surface", surface).
		Dur("cooldown", cooldown).
		Int("consecutive", consecutive).
		Msg("Rate limited by Polymarket, cooling down")

	return nil
}

func (t *Tracker) clear(ctx context.Context, surface string, now time.Time) error {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if state, ok := t.memory[surface]; ok && state.Consecutive > 0 {
			state.Consecutive = 0
			state.LastUpdate = now
			t.memory[surface] = state
		}
		return nil
	}

	key := redisKey(surface)
	consecutive, err := t.redis.HGet(ctx, key, "consecutive").Int()
	if errors.Is(err, redis.Nil) || (err == nil && consecutive == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}

	if err := t.redis.HSet(ctx, key, "consecutive", 0, "last_update", now.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	t.logger.Info().Str("surface", surface).Msg("Rate limit streak cleared")
	return nil
}

// ShouldAllowRequest reports whether a request may go out now. It returns
// false during a cooldown and sleeps ThrottleDelay while throttling.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, surface string) (bool, error) {
	state, err := t.GetState(ctx, surface)
	if err != nil {
		return false, err
	}

	now := t.now()
	if state.IsBlocked(now) {
		t.logger.Warn().
			Str("surface", surface).
			Dur("wait_duration", state.CooldownRemaining(now)).
			Msg("Cooldown active, blocking request")
		rateLimitBlocksTotal.WithLabelValues(surface).Inc()
		return false, nil
	}

	if state.NeedsThrottling(now) {
		rateLimitThrottlesTotal.WithLabelValues(surface).Inc()
		if err := sleep(ctx, ThrottleDelay); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Wait blocks until surface may be called again or ctx is done.
func (t *Tracker) Wait(ctx context.Context, surface string) error {
	state, err := t.GetState(ctx, surface)
	if err != nil {
		return err
	}

	now := t.now()
	if remaining := state.CooldownRemaining(now); remaining > 0 {
		rateLimitBlocksTotal.WithLabelValues(surface).Inc()
		t.logger.Debug().
			Str("surface", surface).
			Dur("wait_duration", remaining).
			Msg("Waiting for cooldown")
		return sleep(ctx, remaining)
	}

	if state.NeedsThrottling(now) {
		rateLimitThrottlesTotal.WithLabelValues(surface).Inc()
		return sleep(ctx, ThrottleDelay)
	}
	return nil
}

// ParseRetryAfter reads a Retry-After value in seconds or HTTP-date form.
// Missing or invalid values yield DefaultCooldown; results are capped at MaxCooldown.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultCooldown
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return DefaultCooldown
		}
		d = time.Duration(secs * float64(time.Second))
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
		if d < 0 {
			d = 0
		}
	} else {
		return DefaultCooldown
	}

	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
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
