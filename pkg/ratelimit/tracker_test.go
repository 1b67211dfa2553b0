package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newMemoryTracker(now time.Time) *Tracker {
	tracker := NewTracker(nil, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	tracker.now = func() time.Time { return now }
	return tracker
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "missing", value: "", want: DefaultCooldown},
		{name: "seconds", value: "7", want: 7 * time.Second},
		{name: "fractional seconds", value: "1.5", want: 1500 * time.Millisecond},
		{name: "http date", value: now.Add(30 * time.Second).Format(http.TimeFormat), want: 30 * time.Second},
		{name: "date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		{name: "garbage", value: "soon", want: DefaultCooldown},
		{name: "negative", value: "-3", want: DefaultCooldown},
		{name: "capped", value: "86400", want: MaxCooldown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestTracker_Memory_UpdateFromResponse(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker := newMemoryTracker(now)
	ctx := context.Background()

	if tracker.Shared() {
		t.Fatal("tracker without redis should not be shared")
	}

	state, err := tracker.GetState(ctx, "clob")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy() || state.Surface != "clob" {
		t.Errorf("unexpected initial state %+v", state)
	}

	headers := http.Header{"Retry-After": {"20"}}
	if err := tracker.UpdateFromResponse(ctx, "clob", http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	state, _ = tracker.GetState(ctx, "clob")
	if state.Consecutive != 1 {
		t.Errorf("Consecutive = %d, want 1", state.Consecutive)
	}
	if !state.BlockedUntil.Equal(now.Add(20 * time.Second)) {
		t.Errorf("BlockedUntil = %v", state.BlockedUntil)
	}

	other, _ := tracker.GetState(ctx, "gamma")
	if other.IsBlocked(now) {
		t.Error("cooldown leaked to another surface")
	}

	// Client errors leave the streak untouched, successes clear it.
	_ = tracker.UpdateFromResponse(ctx, "clob", http.StatusNotFound, nil)
	state, _ = tracker.GetState(ctx, "clob")
	if state.Consecutive != 1 {
		t.Errorf("Consecutive after 404 = %d, want 1", state.Consecutive)
	}

	_ = tracker.UpdateFromResponse(ctx, "clob", http.StatusOK, nil)
	state, _ = tracker.GetState(ctx, "clob")
	if state.Consecutive != 0 {
		t.Errorf("Consecutive after 200 = %d, want 0", state.Consecutive)
	}
}

func TestTracker_Memory_ShouldAllowRequest(t *testing.T) {
	now := time.Now()
	tracker := newMemoryTracker(now)
	ctx := context.Background()

	allowed, err := tracker.ShouldAllowRequest(ctx, "gamma")
	if err != nil || !allowed {
		t.Fatalf("healthy surface: allowed=%v err=%v", allowed, err)
	}

	_ = tracker.UpdateFromResponse(ctx, "gamma", http.StatusTooManyRequests, http.Header{"Retry-After": {"60"}})

	allowed, err = tracker.ShouldAllowRequest(ctx, "gamma")
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("request allowed during cooldown")
	}

	tracker.now = func() time.Time { return now.Add(61 * time.Second) }
	allowed, _ = tracker.ShouldAllowRequest(ctx, "gamma")
	if !allowed {
		t.Error("request blocked after cooldown")
	}
}

func TestTracker_Memory_WaitHonoursCooldown(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	ctx := context.Background()

	_ = tracker.UpdateFromResponse(ctx, "data", http.StatusTooManyRequests, http.Header{"Retry-After": {"0.05"}})

	start := time.Now()
	if err := tracker.Wait(ctx, "data"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Wait() returned after %v, expected the cooldown", elapsed)
	}
}

func TestTracker_Memory_WaitCancelled(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	_ = tracker.UpdateFromResponse(context.Background(), "data", http.StatusTooManyRequests, http.Header{"Retry-After": {"30"}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tracker.Wait(ctx, "data"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestTracker_Memory_Throttling(t *testing.T) {
	now := time.Now()
	tracker := newMemoryTracker(now)
	ctx := context.Background()

	for i := 0; i < ThrottleAfter; i++ {
		_ = tracker.UpdateFromResponse(ctx, "clob", http.StatusTooManyRequests, http.Header{"Retry-After": {"1"}})
	}

	state, _ := tracker.GetState(ctx, "clob")
	if state.NeedsThrottling(now) {
		t.Error("throttling reported while still blocked")
	}
	if !state.NeedsThrottling(now.Add(2 * time.Second)) {
		t.Error("throttling not reported after cooldown with a 429 streak")
	}
}
