package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polymarket_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts includes the initial request.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass scales base for an error class. Rate limits back
// off longest, network errors a little longer than server errors.
func RetryConfigForErrorClass(errorClass ErrorClass, base RetryConfig) RetryConfig {
	cfg := base
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 2.0
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	switch errorClass {
	case ErrorClassRateLimit:
		cfg.InitialBackoff *= 5
		cfg.MaxBackoff *= 2
	case ErrorClassNetwork:
		cfg.InitialBackoff *= 2
	}
	return cfg
}

// backoff returns the wait before the retry following attempt (1-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffMultiplier)
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// jittered spreads d by ±20%.
func jittered(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// retryWithBackoff runs fn until it succeeds, returns a non-retryable class,
// or runs out of attempts. fn reports the class of each failure.
func retryWithBackoff(ctx context.Context, base RetryConfig, fn func() (ErrorClass, error)) error {
	attempts := base.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	var lastClass ErrorClass

	for attempt := 1; attempt <= attempts; attempt++ {
		errorClass, err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr, lastClass = err, errorClass

		if !shouldRetry(errorClass) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := jittered(RetryConfigForErrorClass(errorClass, base).backoff(attempt))
		retriesTotal.WithLabelValues(string(errorClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		log.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	log.Warn().
		Str("error_class", string(lastClass)).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
