//go:build integration

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/polymarket-client/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newIntegrationClient(t *testing.T, srv *httptest.Server, rdb *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(rdb, "polymarket-client-integration/1.0")
	cfg.InitialBackoff = time.Millisecond
	cfg.BaseURLs = map[Surface]string{SurfaceGamma: srv.URL, SurfaceData: srv.URL, SurfaceCLOB: srv.URL}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestIntegration_FullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var requests, conditional atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("If-None-Match") == `"markets-v1"` {
			conditional.Add(1)
			w.Header().Set("Cache-Control", "max-age=300")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"markets-v1"`)
		w.Header().Set("Cache-Control", "max-age=1")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","slug":"will-it-rain"}]`))
	}))
	defer server.Close()

	c := newIntegrationClient(t, server, redisClient)
	ctx := context.Background()
	query := url.Values{"limit": {"1"}, "offset": {"0"}}

	// Upstream, then cache.
	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, SurfaceGamma, "/markets", query); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}
	if requests.Load() != 1 {
		t.Errorf("upstream requests = %d, want 1", requests.Load())
	}

	// Expired entry is revalidated with If-None-Match.
	time.Sleep(1100 * time.Millisecond)
	body, err := c.Get(ctx, SurfaceGamma, "/markets", query)
	if err != nil {
		t.Fatalf("revalidation failed: %v", err)
	}
	if string(body) != `[{"id":"1","slug":"will-it-rain"}]` {
		t.Errorf("body = %s", body)
	}
	if conditional.Load() != 1 {
		t.Errorf("conditional requests = %d, want 1", conditional.Load())
	}

	key := cache.Key{Surface: "gamma", Endpoint: "/markets", Query: query}
	entry, err := c.Cache().Get(ctx, key)
	if err != nil {
		t.Fatalf("cache lookup failed: %v", err)
	}
	if entry.TTL() < 250*time.Second {
		t.Errorf("entry TTL after 304 = %v, want about 300s", entry.TTL())
	}
}

func TestIntegration_SharedCooldown(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	var limited atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limited.CompareAndSwap(false, true) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	first := newIntegrationClient(t, server, redisClient)
	second := newIntegrationClient(t, server, redisClient)
	ctx := context.Background()

	go func() {
		_, _ = first.Get(ctx, SurfaceData, "/trades", nil)
	}()

	// Give the first client time to record the 429.
	time.Sleep(200 * time.Millisecond)

	state, err := second.RateLimitState(ctx, SurfaceData)
	if err != nil {
		t.Fatalf("RateLimitState() error = %v", err)
	}
	if !state.IsBlocked(time.Now()) {
		t.Fatalf("second client does not see the cooldown: %+v", state)
	}

	start := time.Now()
	if _, err := second.Get(ctx, SurfaceData, "/activity", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if time.Since(start) < 500*time.Millisecond {
		t.Error("second client did not wait for the shared cooldown")
	}
}

func TestIntegration_ErrorClassification(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	tests := []struct {
		name   string
		status int
		class  ErrorClass
	}{
		{"bad request", http.StatusBadRequest, ErrorClassClient},
		{"not found", http.StatusNotFound, ErrorClassClient},
		{"server error", http.StatusInternalServerError, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := newIntegrationClient(t, server, redisClient)
			_, err := c.Get(context.Background(), SurfaceCLOB, "/midpoint", url.Values{"token_id": {"1"}})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.ErrorClass != tt.class {
				t.Errorf("ErrorClass = %s, want %s", apiErr.ErrorClass, tt.class)
			}
		})
	}
}
