package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves pages of the given sizes in call order and records offsets.
type fakeSource struct {
	mu      sync.Mutex
	sizes   []int
	fail    map[int]error // call index -> error
	calls   int
	offsets []int
	limits  []int
}

func (f *fakeSource) fetch(_ context.Context, req PageRequest) (Page[int], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.calls
	f.calls++
	f.offsets = append(f.offsets, req.Offset)
	f.limits = append(f.limits, req.Limit)

	if err, ok := f.fail[call]; ok {
		return Page[int]{}, err
	}
	size := 0
	if call < len(f.sizes) {
		size = f.sizes[call]
	} else if len(f.sizes) > 0 {
		size = f.sizes[len(f.sizes)-1]
	}

	records := make([]int, size)
	for i := range records {
		records[i] = req.Offset + i
	}
	return Page[int]{Records: records}, nil
}

func (f *fakeSource) source(defaultLimit int) Source[int] {
	return Source[int]{Fetch: f.fetch, DefaultLimit: defaultLimit}
}

func TestPaginate_ShortPageTerminates(t *testing.T) {
	f := &fakeSource{sizes: []int{500, 500, 137}}

	records, err := Paginate(context.Background(), f.source(500), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, f.calls)
	assert.Equal(t, []int{0, 500, 1000}, f.offsets)
	assert.Len(t, records, 1137)
	for i, r := range records {
		if r != i {
			t.Fatalf("record %d = %d, order not preserved", i, r)
		}
	}
}

func TestPaginate_MaxPages(t *testing.T) {
	f := &fakeSource{sizes: []int{500}}

	records, err := Paginate(context.Background(), f.source(500), Options{MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls)
	assert.Len(t, records, 1000)
}

func TestPaginate_EmptyFirstPage(t *testing.T) {
	f := &fakeSource{sizes: []int{0}}

	records, err := Paginate(context.Background(), f.source(500), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestPaginate_OffsetAdvancesByActualCount(t *testing.T) {
	f := &fakeSource{sizes: []int{300, 500, 10}}
	more := []MoreHint{MoreYes, MoreUnknown, MoreUnknown}
	calls := 0
	src := Source[int]{
		DefaultLimit: 500,
		Fetch: func(ctx context.Context, req PageRequest) (Page[int], error) {
			page, err := f.fetch(ctx, req)
			page.More = more[calls]
			calls++
			return page, err
		},
	}

	records, err := Paginate(context.Background(), src, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 300, 800}, f.offsets)
	assert.Len(t, records, 810)
}

func TestPaginate_MoreNoStops(t *testing.T) {
	src := Source[int]{
		DefaultLimit: 2,
		Fetch: func(_ context.Context, req PageRequest) (Page[int], error) {
			return Page[int]{Records: []int{1, 2}, More: MoreNo}, nil
		},
	}

	records, err := Paginate(context.Background(), src, Options{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestPaginate_FailurePropagates(t *testing.T) {
	boom := errors.New("connection reset")
	f := &fakeSource{sizes: []int{500}, fail: map[int]error{1: boom}}

	records, err := Paginate(context.Background(), f.source(500), Options{})
	require.Error(t, err)

	assert.Nil(t, records)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, f.calls)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 2, pageErr.Page)
	assert.Equal(t, 500, pageErr.Offset)
}

func TestPaginate_LimitOverrideAndInitialOffset(t *testing.T) {
	f := &fakeSource{sizes: []int{50, 50, 3}}

	records, err := Paginate(context.Background(), f.source(500), Options{Limit: 50, InitialOffset: 20})
	require.NoError(t, err)

	assert.Equal(t, []int{20, 70, 120}, f.offsets)
	assert.Equal(t, []int{50, 50, 50}, f.limits)
	assert.Len(t, records, 103)
	assert.Equal(t, 20, records[0])
}

func TestPaginate_NoLimit(t *testing.T) {
	f := &fakeSource{sizes: []int{1}}

	_, err := Paginate(context.Background(), f.source(0), Options{})
	assert.ErrorIs(t, err, ErrNoLimit)
	assert.Equal(t, 0, f.calls)
}

func TestPaginate_DelayBetweenPagesOnly(t *testing.T) {
	var stamps []time.Time
	sizes := []int{2, 2, 1}
	src := Source[int]{
		DefaultLimit: 2,
		Fetch: func(_ context.Context, req PageRequest) (Page[int], error) {
			stamps = append(stamps, time.Now())
			return Page[int]{Records: make([]int, sizes[len(stamps)-1])}, nil
		},
	}

	start := time.Now()
	_, err := Paginate(context.Background(), src, Options{Delay: 20 * time.Millisecond})
	require.NoError(t, err)
	elapsed := time.Since(start)

	require.Len(t, stamps, 3)
	assert.Less(t, stamps[0].Sub(start), 15*time.Millisecond, "no delay before first page")
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 20*time.Millisecond)
	assert.Less(t, elapsed-stamps[2].Sub(start), 15*time.Millisecond, "no delay after last page")
}

func TestPaginate_DelayHonoursCancellation(t *testing.T) {
	f := &fakeSource{sizes: []int{5}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	records, err := Paginate(ctx, f.source(5), Options{Delay: time.Second})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, records)
	assert.Equal(t, 1, f.calls)
}
