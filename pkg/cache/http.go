package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is used when a response carries no freshness information.
const DefaultTTL = 30 * time.Second

// ResponseToEntry reads resp into an Entry and restores resp.Body.
// fallback is the lifetime used when the response has no freshness headers.
func ResponseToEntry(resp *http.Response, fallback time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, errors.New("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &Entry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   now,
		Expires:    freshUntil(resp.Header, now, fallback),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.LastModified = t
		}
	}

	return entry, nil
}

// freshUntil derives the expiry from Cache-Control, then Expires, then fallback.
// no-store and no-cache yield an already expired time.
func freshUntil(h http.Header, now time.Time, fallback time.Duration) time.Time {
	if cc := h.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(strings.ToLower(directive))
			switch {
			case directive == "no-store", directive == "no-cache":
				return now
			case strings.HasPrefix(directive, "max-age="):
				if secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}

	if exp := h.Get("Expires"); exp != "" {
		if t, err := http.ParseTime(exp); err == nil {
			if t.Before(now) {
				return now
			}
			return t
		}
	}

	if fallback <= 0 {
		fallback = DefaultTTL
	}
	return now.Add(fallback)
}

// EntryToResponse rebuilds an HTTP response from a cached entry.
func EntryToResponse(entry *Entry) *http.Response {
	header := entry.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache", "HIT")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.StatusCode, http.StatusText(entry.StatusCode)),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
	}
}

// AddConditionalHeaders sets If-None-Match or If-Modified-Since from entry.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if req == nil || !entry.Revalidatable() {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
