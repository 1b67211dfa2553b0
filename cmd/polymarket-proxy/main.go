// Command polymarket-proxy serves cached, rate-limit aware passthrough
// access to the Polymarket Gamma, Data and CLOB APIs.
//
//	GET /gamma/markets?closed=false&all=true
//
// With all=true an offset/limit listing is fetched to the end and returned
// as one JSON array.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/client"
	"github.com/Sternrassler/polymarket-client/pkg/config"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/metrics"
	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// defaultAllLimit is the page size of all=true runs without a limit.
	defaultAllLimit = 500

	// defaultAllTimeout bounds a whole all=true run.
	defaultAllTimeout = 5 * time.Minute
)

type proxyOptions struct {
	// MaxPages caps all=true runs; max_pages in the query may only lower it.
	MaxPages int
	Delay    time.Duration

	// Timeout applies to single requests, AllTimeout to all=true runs.
	Timeout    time.Duration
	AllTimeout time.Duration

	// Batch enables concurrent page windows for all=true runs.
	Batch *pagination.Config
}

func main() {
	cfg, err := config.Load(os.Getenv("POLYMARKET_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := logging.Setup(cfg.Logging)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	rdb := cfg.NewRedis()
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		logger.Warn().Msg("No Redis configured, caching and shared rate limits disabled")
	}

	c, err := client.New(cfg.ClientConfig(rdb))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create client")
	}
	defer c.Close()

	opts := proxyOptions{
		MaxPages:   cfg.Pagination.MaxPages,
		Delay:      cfg.Pagination.Delay,
		Timeout:    cfg.Timeout,
		AllTimeout: defaultAllTimeout,
	}
	if batch, ok := cfg.BatchConfig(); ok {
		opts.Batch = &batch
		logger.Info().Int("max_concurrency", batch.MaxConcurrency).Msg("Concurrent pagination enabled")
	}
	handler := newServer(c, rdb, opts, logger)

	addr := ":" + port
	logger.Info().Str("addr", addr).Str("user_agent", cfg.UserAgent).Msg("Starting Polymarket proxy")
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func newServer(c *client.Client, rdb *redis.Client, opts proxyOptions, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(rdb))
	mux.Handle("/metrics", metrics.Handler())
	for _, s := range client.Surfaces {
		mux.Handle("/"+string(s)+"/", proxyHandler(c, s, opts, logger))
	}
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			if err := rdb.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

func proxyHandler(c *client.Client, surface client.Surface, opts proxyOptions, logger zerolog.Logger) http.HandlerFunc {
	prefix := "/" + string(surface)
	logger = logging.ForSurface(logger, string(surface))

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// /gamma/markets -> /markets
		endpoint := strings.TrimPrefix(r.URL.Path, prefix)
		if endpoint == "" || endpoint == "/" {
			http.Error(w, "missing endpoint", http.StatusNotFound)
			return
		}

		ctx := r.Context()
		timeout := opts.Timeout
		if r.URL.Query().Get("all") == "true" {
			timeout = opts.AllTimeout
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if state, err := c.RateLimitState(ctx, surface); err == nil && state.IsBlocked(time.Now()) {
			retry := max(1, int(math.Ceil(state.CooldownRemaining(time.Now()).Seconds())))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "rate limited upstream", http.StatusTooManyRequests)
			return
		}

		query := r.URL.Query()
		var (
			body []byte
			err  error
		)
		if query.Get("all") == "true" {
			body, err = fetchAll(ctx, c, surface, endpoint, query, opts)
		} else {
			body, err = c.Get(ctx, surface, endpoint, query)
		}
		if err != nil {
			status := statusFor(err)
			logger.Warn().Err(err).Str(logging.FieldEndpoint, endpoint).Int(logging.FieldStatus, status).Msg("Proxy request failed")
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			logger.Debug().Err(err).Msg("Failed to write response")
		}
	}
}

// fetchAll pages endpoint to the end. limit, offset and max_pages come from
// the query; all is not forwarded. max_pages never exceeds opts.MaxPages.
func fetchAll(ctx context.Context, c *client.Client, surface client.Surface, endpoint string, query url.Values, opts proxyOptions) ([]byte, error) {
	runOpts := pagination.Options{Limit: defaultAllLimit, MaxPages: opts.MaxPages, Delay: opts.Delay}
	for name, dst := range map[string]*int{"limit": &runOpts.Limit, "offset": &runOpts.InitialOffset, "max_pages": &runOpts.MaxPages} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, &badRequestError{fmt.Sprintf("invalid %s %q", name, raw)}
		}
		*dst = n
	}
	if opts.MaxPages > 0 && (runOpts.MaxPages == 0 || runOpts.MaxPages > opts.MaxPages) {
		runOpts.MaxPages = opts.MaxPages
	}
	for _, name := range []string{"all", "limit", "offset", "max_pages"} {
		query.Del(name)
	}

	listing := client.Listing{
		Surface:      surface,
		Path:         endpoint,
		Query:        query,
		DefaultLimit: defaultAllLimit,
	}
	var (
		t   *table.Table
		err error
	)
	if opts.Batch != nil {
		t, err = c.FetchAllConcurrent(ctx, listing, runOpts, *opts.Batch)
	} else {
		t, err = c.FetchAll(ctx, listing, runOpts)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// statusFor maps an error to the proxy's response status. Upstream 4xx
// pass through; everything else is a bad gateway.
func statusFor(err error) int {
	var bad *badRequestError
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorClass {
		case client.ErrorClassRateLimit:
			return http.StatusTooManyRequests
		case client.ErrorClassClient:
			return apiErr.StatusCode
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
