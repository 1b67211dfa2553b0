// Package testutil provides a mock Polymarket server for tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request as the mock saw it.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// MockPolymarket serves Gamma, Data and CLOB paths from one server. Point
// every surface's base URL at URL().
type MockPolymarket struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest

	conditional int
}

// NewMockPolymarket starts the mock server.
func NewMockPolymarket() *MockPolymarket {
	mock := &MockPolymarket{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		if r.Header.Get("If-None-Match") != "" {
			mock.conditional++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))

	return mock
}

// URL returns the server URL.
func (m *MockPolymarket) URL() string {
	return m.server.URL
}

// Close shuts down the server.
func (m *MockPolymarket) Close() {
	m.server.Close()
}

// Reset clears the recorded requests.
func (m *MockPolymarket) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditional = 0
}

// SetHandler serves path with handler.
func (m *MockPolymarket) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse serves a canned response on path.
func (m *MockPolymarket) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// SetListing serves rows as an offset/limit listing. A missing limit
// returns everything from offset.
func (m *MockPolymarket) SetListing(path string, rows []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = len(rows)
		}

		page := []map[string]any{}
		for i := offset; i >= 0 && i < len(rows) && i < offset+limit; i++ {
			page = append(page, rows[i])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockPolymarket) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestCount returns the number of requests served.
func (m *MockPolymarket) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// CountPath returns the number of requests to path.
func (m *MockPolymarket) CountPath(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// ConditionalCount returns the number of requests carrying If-None-Match.
func (m *MockPolymarket) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditional
}

// Rows builds n listing rows {"id": "<i>", "slug": "item-<i>"}.
func Rows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"id": strconv.Itoa(i), "slug": "item-" + strconv.Itoa(i)}
	}
	return rows
}

// JSONResponse is a 200 with a JSON body.
func JSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// RateLimitResponse is a 429 with Retry-After in seconds.
func RateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"Too Many Requests"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  strconv.Itoa(retryAfter),
		},
	}
}

// ServerErrorResponse is a 500.
func ServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// ConditionalHandler answers 304 when If-None-Match matches etag.
func ConditionalHandler(etag, data string, maxAge time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(int(maxAge.Seconds())))
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(data))
	}
}
