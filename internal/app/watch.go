package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/state"
)

const (
	baseBackoff    = time.Second
	maxBackoff     = 30 * time.Second
	contextRecheck = time.Second
)

// calculateBackoff returns the delay before the next reconnect attempt
// using exponential backoff capped at maxBackoff.
func calculateBackoff(failures int, baseInterval time.Duration) time.Duration {
	if failures <= 0 {
		return baseInterval
	}
	backoff := baseInterval
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// snapshotWatcher streams snapshots for one context until ctx ends or the
// stream breaks.
type snapshotWatcher interface {
	Watch(ctx context.Context, key string, fn func(api.Snapshot)) error
}

// watchLoop keeps a push stream open for the reconciler's current context,
// reconnecting with backoff and following context switches. Polling keeps
// running regardless, so a dead stream only costs latency.
type watchLoop struct {
	watcher snapshotWatcher
	rec     *state.Reconciler
	clock   clock.Clock
	logger  *zap.Logger
	backoff time.Duration
	recheck time.Duration
}

func (w *watchLoop) Run(ctx context.Context) error {
	failures := 0
	for {
		key := w.rec.Context()
		if key == "" {
			if !w.sleep(ctx, w.recheck) {
				return nil
			}
			continue
		}

		switched, received, err := w.watchOnce(ctx, key)
		if ctx.Err() != nil {
			return nil
		}
		if switched {
			failures = 0
			w.logger.Debug("watch following context switch", zap.String("from", key), zap.String("to", w.rec.Context()))
			continue
		}
		if received {
			failures = 0
		}
		delay := calculateBackoff(failures, w.backoff)
		failures++
		w.logger.Warn("watch stream lost",
			zap.String("context", key),
			zap.Duration("retry_in", delay),
			zap.Error(err))
		if !w.sleep(ctx, delay) {
			return nil
		}
	}
}

// watchOnce runs one stream for key. It reports whether the stream was
// dropped because the context changed and whether any frame arrived.
func (w *watchLoop) watchOnce(ctx context.Context, key string) (switched, received bool, err error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var got atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- w.watcher.Watch(wctx, key, func(snap api.Snapshot) {
			got.Store(true)
			w.rec.OnSnapshotReceived(snap)
		})
	}()
	w.logger.Debug("watch connecting", zap.String("context", key))

	ticker := w.clock.Ticker(w.recheck)
	defer ticker.Stop()
	for {
		select {
		case err = <-done:
			return switched, got.Load(), err
		case <-ticker.C:
			if !switched && w.rec.Context() != key {
				switched = true
				cancel()
			}
		}
	}
}

func (w *watchLoop) sleep(ctx context.Context, d time.Duration) bool {
	timer := w.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
