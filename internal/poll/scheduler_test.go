package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/client"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    int
	at       []time.Time
	clock    clock.Clock
	block    chan struct{}
	inflight int32
	maxSeen  int32
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, key string) (api.Snapshot, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		old := atomic.LoadInt32(&f.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxSeen, old, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	calls := f.calls
	if f.clock != nil {
		f.at = append(f.at, f.clock.Now())
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return api.Snapshot{}, ctx.Err()
		}
	}
	return api.Snapshot{Context: key, Version: uint64(calls)}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type sinkRecorder struct {
	mu    sync.Mutex
	snaps []api.Snapshot
	errs  []error
}

func (r *sinkRecorder) sink(s api.Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	r.errs = append(r.errs, err)
}

func (r *sinkRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func start(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestScheduler_FetchesImmediatelyThenOnInterval(t *testing.T) {
	mock := clock.NewMock()
	f := &fakeFetcher{}
	rec := &sinkRecorder{}
	s := New(Options{Fetcher: f, Context: func() string { return "g_c" }, Sink: rec.sink, Clock: mock})
	if s.Interval() != 10*time.Second {
		t.Fatalf("Interval = %v, want 10s", s.Interval())
	}
	start(t, s)

	waitFor(t, func() bool { return rec.len() == 1 })
	mock.Add(9 * time.Second)
	if got := f.count(); got != 1 {
		t.Fatalf("calls before interval = %d, want 1", got)
	}
	mock.Add(time.Second)
	waitFor(t, func() bool { return rec.len() == 2 })
	mock.Add(10 * time.Second)
	waitFor(t, func() bool { return rec.len() == 3 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.snaps[2].Version != 3 || rec.errs[2] != nil {
		t.Fatalf("third delivery = %+v/%v, want version 3", rec.snaps[2], rec.errs[2])
	}
}

func TestScheduler_TriggerRefreshesAfterSettle(t *testing.T) {
	mock := clock.NewMock()
	f := &fakeFetcher{clock: mock}
	rec := &sinkRecorder{}
	s := New(Options{Fetcher: f, Context: func() string { return "g_c" }, Sink: rec.sink, Clock: mock})
	start(t, s)
	waitFor(t, func() bool { return rec.len() == 1 })

	triggeredAt := mock.Now()
	s.Trigger()
	waitFor(t, func() bool {
		mock.Add(50 * time.Millisecond)
		return rec.len() >= 2
	})

	f.mu.Lock()
	fetchedAt := f.at[1]
	f.mu.Unlock()
	if elapsed := fetchedAt.Sub(triggeredAt); elapsed < DefaultSettle || elapsed >= DefaultInterval {
		t.Fatalf("triggered fetch after %v, want >= %v and before the next tick", elapsed, DefaultSettle)
	}
}

func TestScheduler_NoOverlappingFetches(t *testing.T) {
	mock := clock.NewMock()
	f := &fakeFetcher{block: make(chan struct{})}
	rec := &sinkRecorder{}
	s := New(Options{Fetcher: f, Context: func() string { return "g_c" }, Sink: rec.sink, Clock: mock, Timeout: time.Hour})
	start(t, s)
	waitFor(t, func() bool { return f.count() == 1 })

	for i := 0; i < 3; i++ {
		mock.Add(10 * time.Second)
	}
	s.Trigger()
	mock.Add(time.Second)
	if s.Refresh(context.Background()) {
		t.Fatal("Refresh during an in-flight fetch = true, want false")
	}
	time.Sleep(20 * time.Millisecond)
	if got := f.count(); got != 1 {
		t.Fatalf("calls while blocked = %d, want 1", got)
	}

	close(f.block)
	waitFor(t, func() bool { return rec.len() == 1 })
	if got := atomic.LoadInt32(&f.maxSeen); got != 1 {
		t.Fatalf("max concurrent fetches = %d, want 1", got)
	}
}

func TestScheduler_TimeoutIsTransient(t *testing.T) {
	f := &fakeFetcher{block: make(chan struct{})}
	t.Cleanup(func() { close(f.block) })
	rec := &sinkRecorder{}
	s := New(Options{Fetcher: f, Context: func() string { return "g_c" }, Sink: rec.sink, Timeout: 20 * time.Millisecond})

	if !s.Refresh(context.Background()) {
		t.Fatal("Refresh = false, want true")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var netErr *client.TransientNetworkError
	if len(rec.errs) != 1 || !errors.As(rec.errs[0], &netErr) {
		t.Fatalf("errs = %v, want one *TransientNetworkError", rec.errs)
	}
	if !netErr.Timeout() {
		t.Fatalf("Timeout() = false for %v", netErr)
	}
}

func TestScheduler_SkipsWithoutContext(t *testing.T) {
	f := &fakeFetcher{}
	rec := &sinkRecorder{}
	s := New(Options{Fetcher: f, Sink: rec.sink})
	if s.Refresh(context.Background()) {
		t.Fatal("Refresh without a context = true, want false")
	}
	if f.count() != 0 || rec.len() != 0 {
		t.Fatalf("calls/deliveries = %d/%d, want 0/0", f.count(), rec.len())
	}
}
