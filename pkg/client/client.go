// Package client is the HTTP core shared by the Polymarket surfaces. It gates
// requests on 429 cooldowns, caches public GET responses, and retries
// idempotent requests with backoff.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/cache"
	"github.com/Sternrassler/polymarket-client/pkg/logging"
	"github.com/Sternrassler/polymarket-client/pkg/ratelimit"
	"github.com/Sternrassler/polymarket-client/pkg/signing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_requests_total",
		Help: "Total Polymarket requests by surface, method and status",
	}, []string{"surface", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polymarket_request_duration_seconds",
		Help:    "Polymarket request duration in seconds by surface",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"surface"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polymarket_errors_total",
		Help: "Total Polymarket errors by class",
	}, []string{"class"})
)

// Client executes requests against the Polymarket APIs.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager // nil without Redis
	baseURLs    map[Surface]string
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis enables the response cache and shares 429 cooldowns between
	// processes. Optional.
	Redis *redis.Client

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of attempts for idempotent requests,
	// including the first.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// CacheTTL is the lifetime of cached responses without freshness headers.
	CacheTTL time.Duration

	// BaseURLs overrides the default URL of a surface.
	BaseURLs map[Surface]string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redisClient *redis.Client, userAgent string) Config {
	return Config{
		Redis:          redisClient,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		CacheTTL:       cache.DefaultTTL,
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, errors.New("user-agent is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	baseURLs := make(map[Surface]string, len(Surfaces))
	for _, s := range Surfaces {
		baseURLs[s] = DefaultBaseURL(s)
	}
	for s, u := range cfg.BaseURLs {
		if u == "" {
			continue
		}
		if _, err := url.Parse(u); err != nil {
			return nil, fmt.Errorf("base url for %s: %w", s, err)
		}
		baseURLs[s] = u
	}

	logger := logging.NewLogger("polymarket-client")

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		baseURLs:    baseURLs,
		config:      cfg,
		logger:      logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}
	return c, nil
}

// BaseURL returns the base URL in use for s.
func (c *Client) BaseURL(s Surface) string {
	return c.baseURLs[s]
}

// URL joins the base URL of s with path.
func (c *Client) URL(s Surface, path string) string {
	return joinURL(c.baseURLs[s], path)
}

// Request describes one call to a surface.
type Request struct {
	Surface Surface
	Method  string
	Path    string
	Query   url.Values

	// Headers are applied verbatim; signed requests are never cached.
	Headers signing.Headers

	// Body is sent as application/json when non-nil.
	Body []byte
}

// Send performs r and returns the response body. Non-2xx responses are
// returned as *APIError.
func (c *Client) Send(ctx context.Context, r Request) ([]byte, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.URL(r.Surface, r.Path)
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(withSurface(ctx, r.Surface), method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.Headers.Apply(req.Header)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			Surface:    r.Surface,
			Method:     method,
			Path:       r.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Surface:    r.Surface,
			Method:     method,
			Path:       r.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: ClassifyStatus(resp.StatusCode),
			Message:    errorMessage(resp.StatusCode, data),
			Body:       data,
		}
	}

	return data, nil
}

// Get is Send for an unsigned GET.
func (c *Client) Get(ctx context.Context, s Surface, path string, query url.Values) ([]byte, error) {
	return c.Send(ctx, Request{Surface: s, Method: http.MethodGet, Path: path, Query: query})
}

// Do performs req with rate limit gating, caching and retries.
// Client errors (4xx) are returned as responses for the caller to inspect.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	surface := c.surfaceOf(req)
	label := string(surface)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())
	}()

	// Cache
	cacheable := c.cache != nil && req.Method == http.MethodGet && !isSigned(req.Header)
	cacheKey := cache.Key{Surface: label, Endpoint: req.URL.Path, Query: req.URL.Query()}

	var cached *cache.Entry
	if cacheable {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("surface", label).Str("endpoint", req.URL.Path).Msg("Cache hit")
			requestsTotal.WithLabelValues(label, req.Method, "cache").Inc()
			return cache.EntryToResponse(entry), nil
		case errors.Is(err, cache.ErrStale):
			cached = entry
			cache.AddConditionalHeaders(req, cached)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", req.URL.Path).Msg("Cache get error")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	retryCfg := RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    c.config.InitialBackoff,
		MaxBackoff:        c.config.MaxBackoff,
		BackoffMultiplier: 2.0,
	}
	if idempotent(req.Method) && c.config.MaxRetries > 0 {
		retryCfg.MaxAttempts = c.config.MaxRetries
	}

	c.logger.Debug().
		Str("surface", label).
		Str("endpoint", req.URL.Path).
		Str("method", req.Method).
		Msg("Executing request")

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, retryCfg, func() (ErrorClass, error) {
		if err := c.rateLimiter.Wait(ctx, label); err != nil {
			return "", err
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			resp = nil
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(label, req.Method, "network_error").Inc()
			c.logger.Error().Err(reqErr).Str("endpoint", req.URL.Path).Msg("HTTP request failed")
			return ErrorClassNetwork, &APIError{
				Surface:    surface,
				Method:     req.Method,
				Path:       req.URL.Path,
				ErrorClass: ErrorClassNetwork,
				Err:        reqErr,
			}
		}

		if err := c.rateLimiter.UpdateFromResponse(ctx, label, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}
		requestsTotal.WithLabelValues(label, req.Method, strconv.Itoa(resp.StatusCode)).Inc()

		errClass := ClassifyStatus(resp.StatusCode)
		if errClass == "" {
			return "", nil
		}

		errorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("surface", label).
			Str("endpoint", req.URL.Path).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Polymarket request error")

		if !shouldRetry(errClass) {
			return "", nil
		}

		status := resp.StatusCode
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		resp = nil
		return errClass, &APIError{
			Surface:    surface,
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: status,
			ErrorClass: errClass,
			Message:    errorMessage(status, data),
			Body:       data,
		}
	})
	if retryErr != nil {
		return nil, retryErr
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("endpoint", req.URL.Path).Msg("304 Not Modified, using cache")

		if refreshed, err := c.cache.Refresh(ctx, cacheKey, resp.Header); err == nil {
			cached = refreshed
		} else {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cache.EntryToResponse(cached), nil
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := c.cache.EntryFromResponse(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// RateLimitState exposes the cooldown state of a surface.
func (c *Client) RateLimitState(ctx context.Context, s Surface) (*ratelimit.State, error) {
	return c.rateLimiter.GetState(ctx, string(s))
}

// Cache returns the response cache, or nil when Redis is not configured.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// SetHTTPClient replaces the HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Close releases idle connections. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// isSigned looks the signature header up verbatim, since Apply stores it
// uncanonicalised.
func isSigned(h http.Header) bool {
	_, ok := h[signing.HeaderSignature]
	return ok || h.Get(signing.HeaderSignature) != ""
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

type surfaceKey struct{}

func withSurface(ctx context.Context, s Surface) context.Context {
	return context.WithValue(ctx, surfaceKey{}, s)
}

func (c *Client) surfaceOf(req *http.Request) Surface {
	if s, ok := req.Context().Value(surfaceKey{}).(Surface); ok && s != "" {
		return s
	}
	for s, base := range c.baseURLs {
		if hostOf(base) == req.URL.Host {
			return s
		}
	}
	return Surface(req.URL.Host)
}
