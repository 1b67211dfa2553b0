package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, vs := range header {
		req.Header[k] = vs
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestSetListing_Pages(t *testing.T) {
	mock := NewMockPolymarket()
	defer mock.Close()
	mock.SetListing("/markets", Rows(5))

	_, body := get(t, mock.URL()+"/markets?limit=2&offset=3", nil)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "3", rows[0]["id"])

	_, body = get(t, mock.URL()+"/markets?limit=2&offset=10", nil)
	assert.JSONEq(t, `[]`, body)

	assert.Equal(t, 2, mock.CountPath("/markets"))
	assert.Equal(t, "3", mock.Requests()[0].Query.Get("offset"))
}

func TestUnknownPath(t *testing.T) {
	mock := NewMockPolymarket()
	defer mock.Close()

	resp, _ := get(t, mock.URL()+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConditionalHandler(t *testing.T) {
	mock := NewMockPolymarket()
	defer mock.Close()
	mock.SetHandler("/tags", ConditionalHandler(`"v1"`, `[]`, time.Minute))

	resp, _ := get(t, mock.URL()+"/tags", nil)
	assert.Equal(t, `"v1"`, resp.Header.Get("ETag"))

	resp, _ = get(t, mock.URL()+"/tags", http.Header{"If-None-Match": {`"v1"`}})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Equal(t, 1, mock.ConditionalCount())

	mock.Reset()
	assert.Zero(t, mock.RequestCount())
}

func TestCannedResponses(t *testing.T) {
	mock := NewMockPolymarket()
	defer mock.Close()
	mock.SetResponse("/limited", RateLimitResponse(3))
	mock.SetResponse("/broken", ServerErrorResponse())
	mock.SetResponse("/ok", JSONResponse(`{"ok":true}`))

	resp, _ := get(t, mock.URL()+"/limited", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3", resp.Header.Get("Retry-After"))

	resp, _ = get(t, mock.URL()+"/broken", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	_, body := get(t, mock.URL()+"/ok", nil)
	assert.JSONEq(t, `{"ok":true}`, body)
}
