package queue

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// CommitHook observes every committed state change. Hooks run after the
// store lock is released, so they may read the store but must not block.
type CommitHook func(State)

// Store owns the queue of one channel context. Mutations are serialized
// under a single write lock; readers get a copy of either the pre- or the
// post-mutation state.
type Store struct {
	mu    sync.RWMutex
	state State
	clock clock.Clock
	hooks []CommitHook
}

// NewStore creates an empty, disconnected queue for key.
func NewStore(key string, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		state: State{Context: key, Status: Disconnected, UpdatedAt: clk.Now()},
		clock: clk,
	}
}

// OnCommit registers a hook called with the state after each committed change.
func (s *Store) OnCommit(hook CommitHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// Current returns a copy of the queue state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Restore replaces the state without running hooks. Used when loading
// persisted queues at startup.
func (s *Store) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.state.Context
	s.state = st.Clone()
	s.state.Context = key
}

// ApplyAdd appends a single entry to the tail.
func (s *Store) ApplyAdd(entry Entry) (State, error) {
	return s.ApplyAddBatch([]Entry{entry})
}

// ApplyAddBatch appends entries in order. Either every entry is admitted or
// none is.
func (s *Store) ApplyAddBatch(entries []Entry) (State, error) {
	return s.mutate(func(st *State) (bool, error) {
		if len(entries) == 0 {
			return false, &BatchValidationError{Index: -1, Reason: "no entries"}
		}
		seen := make(map[string]struct{}, len(st.Entries)+len(entries))
		for _, e := range st.Entries {
			seen[e.ID] = struct{}{}
		}
		if st.CurrentTrack != nil {
			seen[st.CurrentTrack.ID] = struct{}{}
		}
		admitted := make([]Entry, 0, len(entries))
		for i, e := range entries {
			e.SourceRef = strings.TrimSpace(e.SourceRef)
			e.Title = strings.TrimSpace(e.Title)
			e.ID = strings.TrimSpace(e.ID)
			if e.SourceRef == "" {
				return false, &BatchValidationError{Index: i, Reason: "source reference is empty"}
			}
			if e.Title == "" {
				e.Title = e.SourceRef
			}
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			if _, dup := seen[e.ID]; dup {
				return false, &BatchValidationError{Index: i, Reason: "duplicate id " + e.ID}
			}
			seen[e.ID] = struct{}{}
			admitted = append(admitted, e)
		}
		next := make([]Entry, 0, len(st.Entries)+len(admitted))
		next = append(next, st.Entries...)
		st.Entries = append(next, admitted...)
		return true, nil
	})
}

// ApplyRemove deletes the entry with id. Later entries shift down by one.
func (s *Store) ApplyRemove(id string) (State, error) {
	return s.mutate(func(st *State) (bool, error) {
		idx := st.IndexOf(id)
		if idx < 0 {
			return false, &NotFoundError{ID: id}
		}
		next := make([]Entry, 0, len(st.Entries)-1)
		next = append(next, st.Entries[:idx]...)
		st.Entries = append(next, st.Entries[idx+1:]...)
		return true, nil
	})
}

// ApplyReorder moves one entry. Indices are checked against the queue as it
// is when the lock is held, not as the caller last saw it.
func (s *Store) ApplyReorder(op ReorderOperation) (State, error) {
	return s.mutate(func(st *State) (bool, error) {
		n := len(st.Entries)
		if op.OldIndex < 0 || op.OldIndex >= n {
			return false, &OutOfRangeError{Index: op.OldIndex, Len: n}
		}
		if op.NewIndex < 0 || op.NewIndex >= n {
			return false, &OutOfRangeError{Index: op.NewIndex, Len: n}
		}
		if op.OldIndex == op.NewIndex {
			return false, nil
		}
		st.Entries = Move(st.Entries, op)
		return true, nil
	})
}

// ApplyMoveToTop moves the entry at oldIndex to the head of the queue.
func (s *Store) ApplyMoveToTop(oldIndex int) (State, error) {
	return s.ApplyReorder(ReorderOperation{OldIndex: oldIndex, NewIndex: 0})
}

// ApplyClear drops every waiting entry. The current track is left alone.
func (s *Store) ApplyClear() State {
	st, _ := s.mutate(func(st *State) (bool, error) {
		if len(st.Entries) == 0 {
			return false, nil
		}
		st.Entries = nil
		return true, nil
	})
	return st
}

// ApplyShuffle permutes the waiting entries. A nil rng uses the global source.
func (s *Store) ApplyShuffle(rng *rand.Rand) State {
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	st, _ := s.mutate(func(st *State) (bool, error) {
		if len(st.Entries) < 2 {
			return false, nil
		}
		next := cloneEntries(st.Entries)
		shuffle(len(next), func(i, j int) { next[i], next[j] = next[j], next[i] })
		st.Entries = next
		return true, nil
	})
	return st
}

// ReportPlayback records what the media collaborator says is playing. A
// reported track that is still waiting in the queue is dequeued.
func (s *Store) ReportPlayback(current *Entry, status ConnectionStatus) State {
	st, _ := s.mutate(func(st *State) (bool, error) {
		changed := st.Status != status
		st.Status = status
		if !sameTrack(st.CurrentTrack, current) {
			changed = true
			if current == nil {
				st.CurrentTrack = nil
			} else {
				cur := *current
				st.CurrentTrack = &cur
			}
		}
		if current != nil {
			if idx := st.IndexOf(current.ID); idx >= 0 {
				next := make([]Entry, 0, len(st.Entries)-1)
				next = append(next, st.Entries[:idx]...)
				st.Entries = append(next, st.Entries[idx+1:]...)
				changed = true
			}
		}
		return changed, nil
	})
	return st
}

// Advance dequeues the head entry into the current track. It returns nil
// when the queue is empty, in which case the current track is cleared.
func (s *Store) Advance() (*Entry, State) {
	var next *Entry
	st, _ := s.mutate(func(st *State) (bool, error) {
		if len(st.Entries) == 0 {
			if st.CurrentTrack == nil {
				return false, nil
			}
			st.CurrentTrack = nil
			return true, nil
		}
		head := st.Entries[0]
		st.Entries = cloneEntries(st.Entries[1:])
		st.CurrentTrack = &head
		cur := head
		next = &cur
		return true, nil
	})
	return next, st
}

// Reset empties the queue and marks it disconnected.
func (s *Store) Reset() State {
	st, _ := s.mutate(func(st *State) (bool, error) {
		if len(st.Entries) == 0 && st.CurrentTrack == nil && st.Status == Disconnected {
			return false, nil
		}
		st.Entries = nil
		st.CurrentTrack = nil
		st.Status = Disconnected
		return true, nil
	})
	return st
}

// mutate runs fn under the write lock. fn must leave st untouched when it
// returns an error; a false change flag commits nothing.
func (s *Store) mutate(fn func(st *State) (bool, error)) (State, error) {
	s.mu.Lock()
	changed, err := fn(&s.state)
	if err != nil || !changed {
		cur := s.state.Clone()
		s.mu.Unlock()
		return cur, err
	}
	s.state.Version++
	s.state.UpdatedAt = s.clock.Now()
	committed := s.state.Clone()
	hooks := s.hooks
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(committed)
	}
	return committed, nil
}

func sameTrack(a, b *Entry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
