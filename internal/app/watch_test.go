package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second},
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	for failures := 0; failures <= 20; failures++ {
		if got := calculateBackoff(failures, 2*time.Second); got > maxBackoff {
			t.Errorf("calculateBackoff(%d) = %v, exceeds maxBackoff %v", failures, got, maxBackoff)
		}
	}
}

// fakeWatcher replays frames, then either fails or blocks until cancelled.
type fakeWatcher struct {
	mu     sync.Mutex
	keys   []string
	frames []api.Snapshot
	fail   int // number of initial calls that fail immediately
}

func (f *fakeWatcher) Watch(ctx context.Context, key string, fn func(api.Snapshot)) error {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	call := len(f.keys)
	frames := f.frames
	fail := f.fail
	f.mu.Unlock()

	if call <= fail {
		return errors.New("connection refused")
	}
	for _, snap := range frames {
		snap.Context = key
		fn(snap)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeWatcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func newTestLoop(w snapshotWatcher, rec *state.Reconciler) *watchLoop {
	return &watchLoop{
		watcher: w,
		rec:     rec,
		clock:   clock.New(),
		logger:  zap.NewNop(),
		backoff: time.Millisecond,
		recheck: 5 * time.Millisecond,
	}
}

func runLoop(t *testing.T, loop *watchLoop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not stop after cancel")
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestWatchLoop_AppliesFrames(t *testing.T) {
	rec := state.NewReconciler("g_c", clock.New(), nil)
	w := &fakeWatcher{frames: []api.Snapshot{
		{ConnectionStatus: api.StatusConnected, Entries: []api.Entry{{ID: "A"}}, Version: 3},
	}}
	runLoop(t, newTestLoop(w, rec))

	waitFor(t, func() bool { return rec.Mirror().Version == 3 })
	if ids := rec.Mirror().IDs(); len(ids) != 1 || ids[0] != "A" {
		t.Fatalf("mirror ids = %v, want [A]", ids)
	}
}

func TestWatchLoop_FollowsContextSwitch(t *testing.T) {
	rec := state.NewReconciler("g_a", clock.New(), nil)
	w := &fakeWatcher{}
	runLoop(t, newTestLoop(w, rec))

	waitFor(t, func() bool { return len(w.calls()) == 1 })
	rec.SetContext("g_b")
	waitFor(t, func() bool {
		calls := w.calls()
		return len(calls) == 2 && calls[1] == "g_b"
	})
}

func TestWatchLoop_RetriesAfterFailure(t *testing.T) {
	rec := state.NewReconciler("g_c", clock.New(), nil)
	w := &fakeWatcher{fail: 2}
	runLoop(t, newTestLoop(w, rec))

	waitFor(t, func() bool { return len(w.calls()) >= 3 })
}

func TestWatchLoop_IdlesWithoutContext(t *testing.T) {
	rec := state.NewReconciler("", clock.New(), nil)
	w := &fakeWatcher{}
	runLoop(t, newTestLoop(w, rec))

	time.Sleep(30 * time.Millisecond)
	if n := len(w.calls()); n != 0 {
		t.Fatalf("watch calls = %d, want 0 without a context", n)
	}
	rec.SetContext("g_c")
	waitFor(t, func() bool { return len(w.calls()) == 1 })
}
