package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Sternrassler/polymarket-client/pkg/pagination"
	"github.com/Sternrassler/polymarket-client/pkg/table"
)

// listingServer serves total rows as offset/limit pages. Rows on the
// second page carry an extra column.
func listingServer(t *testing.T, total int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if r.URL.Query().Get("active") != "true" {
			http.Error(w, "missing filter", http.StatusBadRequest)
			return
		}

		var rows []string
		for i := offset; i < offset+limit && i < total; i++ {
			if i >= limit {
				rows = append(rows, fmt.Sprintf(`{"id":"%d","slug":"m-%d","volume":"%d.5"}`, i, i, i))
			} else {
				rows = append(rows, fmt.Sprintf(`{"id":"%d","slug":"m-%d"}`, i, i))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAll_ColumnsAndOrder(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, listingServer(t, 7, &calls), nil)

	l := Listing{Surface: SurfaceGamma, Path: "/markets", Query: url.Values{"active": {"true"}}, DefaultLimit: 3}
	got, err := c.FetchAll(context.Background(), l, pagination.Options{})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if got.Len() != 7 {
		t.Fatalf("Len() = %d, want 7", got.Len())
	}
	if calls.Load() != 3 {
		t.Errorf("requests = %d, want 3", calls.Load())
	}
	if want := []string{"id", "slug", "volume"}; !reflect.DeepEqual(got.Columns, want) {
		t.Errorf("Columns = %v, want %v", got.Columns, want)
	}
	for i, r := range got.Records {
		if r["id"] != strconv.Itoa(i) {
			t.Errorf("record %d id = %v", i, r["id"])
		}
	}
}

func TestFetchAllConcurrent_MatchesSequential(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, listingServer(t, 10, &calls), nil)
	l := Listing{Surface: SurfaceGamma, Path: "/markets", Query: url.Values{"active": {"true"}}, DefaultLimit: 3}

	seq, err := c.FetchAll(context.Background(), l, pagination.Options{})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	con, err := c.FetchAllConcurrent(context.Background(), l, pagination.Options{}, pagination.Config{MaxConcurrency: 3})
	if err != nil {
		t.Fatalf("FetchAllConcurrent() error = %v", err)
	}

	if !reflect.DeepEqual(seq.Columns, con.Columns) {
		t.Errorf("Columns = %v, want %v", con.Columns, seq.Columns)
	}
	if !reflect.DeepEqual(seq.Records, con.Records) {
		t.Errorf("records differ:\n got %v\nwant %v", con.Records, seq.Records)
	}
}

func TestFetchAll_MaxPagesAndTransform(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, listingServer(t, 100, &calls), nil)

	var transformed int
	l := Listing{
		Surface:      SurfaceGamma,
		Path:         "/markets",
		Query:        url.Values{"active": {"true"}},
		DefaultLimit: 5,
		Transform: func(t *table.Table) (*table.Table, error) {
			transformed++
			return t, nil
		},
	}

	got, err := c.FetchAll(context.Background(), l, pagination.Options{MaxPages: 2, InitialOffset: 10})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if got.Len() != 10 {
		t.Errorf("Len() = %d, want 10", got.Len())
	}
	if got.Records[0]["id"] != "10" {
		t.Errorf("first id = %v, want 10", got.Records[0]["id"])
	}
	if transformed != 1 {
		t.Errorf("Transform ran %d times, want 1", transformed)
	}
}

func TestFetchAll_PageErrorReturnsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			http.Error(w, `{"error":"bad offset"}`, http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	got, err := c.FetchAll(context.Background(), Listing{Surface: SurfaceData, Path: "/trades", DefaultLimit: 2}, pagination.Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Errorf("partial result returned: %v", got)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("error = %v, want wrapped 400 APIError", err)
	}
}

func TestFetchPage_AppliesTransform(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, listingServer(t, 4, &calls), nil)

	l := Listing{
		Surface: SurfaceGamma,
		Path:    "/markets",
		Query:   url.Values{"active": {"true"}},
		Transform: func(t *table.Table) (*table.Table, error) {
			t.Set("source", "page")
			return t, nil
		},
	}
	got, err := c.FetchPage(context.Background(), l, pagination.PageRequest{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if got.Len() != 2 || got.Records[0]["id"] != "2" {
		t.Errorf("page = %v", got.Records)
	}
	if got.Records[1]["source"] != "page" {
		t.Errorf("transform not applied: %v", got.Records[1])
	}
}

func TestGetRecord_RejectsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	if _, err := c.GetRecord(context.Background(), SurfaceCLOB, "/time", nil); err == nil {
		t.Error("GetRecord() on an array should fail")
	}
}

func TestPageQuery(t *testing.T) {
	base := url.Values{"closed": {"false"}, "tag_id": {"1", "2"}, "offset": {"99"}}

	q := pageQuery(base, pagination.PageRequest{Limit: 50, Offset: 100})
	if q.Get("limit") != "50" || q.Get("offset") != "100" {
		t.Errorf("paging = limit %s offset %s", q.Get("limit"), q.Get("offset"))
	}
	if !reflect.DeepEqual(q["tag_id"], []string{"1", "2"}) {
		t.Errorf("tag_id = %v", q["tag_id"])
	}
	if base.Get("offset") != "99" || base.Has("limit") {
		t.Errorf("base query modified: %v", base)
	}

	q = pageQuery(nil, pagination.PageRequest{Offset: 0})
	if q.Has("limit") || q.Get("offset") != "0" {
		t.Errorf("zero limit query = %v", q)
	}
}
