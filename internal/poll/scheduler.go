// Package poll refreshes the dashboard's queue mirror on a fixed cadence and
// shortly after each control action.
package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/client"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultSettle   = 500 * time.Millisecond
	DefaultTimeout  = 5 * time.Second
)

// Options configure a Scheduler.
type Options struct {
	Fetcher  client.SnapshotFetcher
	Context  func() string // selected channel context; empty skips fetching
	Sink     func(api.Snapshot, error)
	Interval time.Duration
	Settle   time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Scheduler runs snapshot fetches. At most one fetch is in flight; ticks and
// triggers that arrive meanwhile are dropped.
type Scheduler struct {
	fetcher  client.SnapshotFetcher
	context  func() string
	sink     func(api.Snapshot, error)
	interval time.Duration
	settle   time.Duration
	timeout  time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	inflight atomic.Bool
	trigger  chan struct{}
	wg       sync.WaitGroup
}

// New builds a Scheduler, filling zero options with defaults.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		fetcher:  opts.Fetcher,
		context:  opts.Context,
		sink:     opts.Sink,
		interval: opts.Interval,
		settle:   opts.Settle,
		timeout:  opts.Timeout,
		clock:    opts.Clock,
		logger:   opts.Logger,
		trigger:  make(chan struct{}, 1),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.settle <= 0 {
		s.settle = DefaultSettle
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.context == nil {
		s.context = func() string { return "" }
	}
	if s.sink == nil {
		s.sink = func(api.Snapshot, error) {}
	}
	return s
}

// Interval returns the effective poll interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run fetches immediately, then on every interval tick and after every
// settled trigger, until ctx is cancelled. It waits for the last fetch to
// finish before returning.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.spawn(ctx)

	var settle *clock.Timer
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.spawn(ctx)
		case <-s.trigger:
			if settle != nil {
				settle.Stop()
			}
			settle = s.clock.AfterFunc(s.settle, func() { s.spawn(ctx) })
		}
	}
}

// Trigger schedules one refresh after the settle delay. Repeated triggers
// inside the delay collapse into one refresh.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Refresh fetches synchronously and reports whether a fetch ran. It returns
// false without fetching when another fetch is in flight or no context is
// selected.
func (s *Scheduler) Refresh(ctx context.Context) bool {
	if !s.inflight.CompareAndSwap(false, true) {
		s.logger.Debug("refresh skipped, fetch in flight")
		return false
	}
	defer s.inflight.Store(false)

	key := s.context()
	if key == "" {
		return false
	}

	fetchCtx, cancel := s.clock.WithTimeout(ctx, s.timeout)
	defer cancel()
	snap, err := s.fetcher.FetchSnapshot(fetchCtx, key)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		var netErr *client.TransientNetworkError
		if !errors.As(err, &netErr) && errors.Is(err, context.DeadlineExceeded) {
			err = &client.TransientNetworkError{Op: "fetch snapshot", Err: err}
		}
		s.logger.Warn("snapshot poll failed", zap.String("context", key), zap.Error(err))
	}
	s.sink(snap, err)
	return true
}

func (s *Scheduler) spawn(ctx context.Context) {
	if ctx.Err() != nil || s.inflight.Load() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Refresh(ctx)
	}()
}
