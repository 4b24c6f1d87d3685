package media

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/five82/setlist/internal/queue"
)

const defaultTrackLength = 3 * time.Minute

// Simulator is an in-process Controller. It pretends every track lasts a
// fixed length and reports joins, playback and dequeues into the registry
// the same way a real voice bot would.
type Simulator struct {
	registry    *queue.Registry
	clock       clock.Clock
	logger      *zap.Logger
	trackLength time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	kick     chan string

	// Serializes startIfIdle so Join and Run cannot both start a track.
	startMu sync.Mutex
}

type session struct {
	voiceChannel string
	timer        *clock.Timer
	deadline     time.Time
	remaining    time.Duration
	paused       bool
}

var _ Controller = (*Simulator)(nil)

// NewSimulator wires a Simulator to registry. Track length defaults to three
// minutes when trackLength is not positive.
func NewSimulator(registry *queue.Registry, clk clock.Clock, logger *zap.Logger, trackLength time.Duration) *Simulator {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if trackLength <= 0 {
		trackLength = defaultTrackLength
	}
	s := &Simulator{
		registry:    registry,
		clock:       clk,
		logger:      logger,
		trackLength: trackLength,
		sessions:    make(map[string]*session),
		kick:        make(chan string, 64),
	}
	registry.OnCommit(s.observe)
	return s
}

// Run starts idle sessions when entries show up. It returns when ctx ends.
func (s *Simulator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return nil
		case key := <-s.kick:
			s.startIfIdle(key)
		}
	}
}

// Join connects to voiceChannel and starts playing the head of the queue.
func (s *Simulator) Join(_ context.Context, key, voiceChannel string) error {
	voiceChannel = strings.TrimSpace(voiceChannel)
	if voiceChannel == "" {
		return ErrNoVoice
	}
	store := s.registry.Get(key)

	s.mu.Lock()
	if sess, ok := s.sessions[key]; ok {
		s.stopLocked(sess)
	}
	s.sessions[key] = &session{voiceChannel: voiceChannel}
	s.mu.Unlock()

	store.ReportPlayback(nil, queue.Connected)
	s.logger.Info("voice joined", zap.String("context", key), zap.String("voice", voiceChannel))
	s.startIfIdle(key)
	return nil
}

// Leave disconnects. Clearing the queue is the caller's job.
func (s *Simulator) Leave(_ context.Context, key string) error {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if ok {
		s.stopLocked(sess)
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotJoined
	}
	s.logger.Info("voice left", zap.String("context", key))
	return nil
}

// Pause freezes the current track.
func (s *Simulator) Pause(_ context.Context, key string) error {
	store := s.registry.Get(key)
	cur := store.Current()

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return ErrNotJoined
	}
	if sess.paused || cur.CurrentTrack == nil {
		s.mu.Unlock()
		return ErrNotPlaying
	}
	sess.remaining = sess.deadline.Sub(s.clock.Now())
	s.stopLocked(sess)
	sess.paused = true
	s.mu.Unlock()

	store.ReportPlayback(cur.CurrentTrack, queue.Paused)
	return nil
}

// Resume continues a paused track.
func (s *Simulator) Resume(_ context.Context, key string) error {
	store := s.registry.Get(key)
	cur := store.Current()

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if !ok {
		s.mu.Unlock()
		return ErrNotJoined
	}
	if !sess.paused {
		s.mu.Unlock()
		return ErrNotPaused
	}
	sess.paused = false
	s.armLocked(key, sess, sess.remaining)
	s.mu.Unlock()

	store.ReportPlayback(cur.CurrentTrack, queue.Playing)
	return nil
}

// Skip ends the current track and moves to the next one.
func (s *Simulator) Skip(_ context.Context, key string) error {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if ok {
		s.stopLocked(sess)
		sess.paused = false
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotJoined
	}
	s.advance(key)
	return nil
}

func (s *Simulator) observe(st queue.State) {
	if len(st.Entries) == 0 || st.CurrentTrack != nil {
		return
	}
	select {
	case s.kick <- st.Context:
	default:
	}
}

// startIfIdle plays the head entry when the session is connected but silent.
func (s *Simulator) startIfIdle(key string) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[key]
	idle := ok && !sess.paused && sess.timer == nil
	s.mu.Unlock()
	if !idle {
		return
	}
	if s.registry.Get(key).Current().CurrentTrack != nil {
		return
	}
	s.advance(key)
}

// advance dequeues the next entry and arms the end-of-track timer. It holds
// s.mu throughout so nothing is dequeued or reported for a session that Leave
// has already removed.
func (s *Simulator) advance(key string) {
	store := s.registry.Get(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return
	}
	s.stopLocked(sess)
	next, _ := store.Advance()
	if next == nil {
		store.ReportPlayback(nil, queue.Connected)
		return
	}
	s.armLocked(key, sess, s.trackLength)
	store.ReportPlayback(next, queue.Playing)
	s.logger.Debug("track started", zap.String("context", key), zap.String("entry", next.ID))
}

func (s *Simulator) armLocked(key string, sess *session, d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	sess.deadline = s.clock.Now().Add(d)
	var timer *clock.Timer
	timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current := sess.timer == timer
		if current {
			sess.timer = nil
		}
		s.mu.Unlock()
		if current {
			s.advance(key)
		}
	})
	sess.timer = timer
}

func (s *Simulator) stopLocked(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
}

func (s *Simulator) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		s.stopLocked(sess)
	}
}
