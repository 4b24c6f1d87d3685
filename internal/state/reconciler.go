package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/client"
	"github.com/five82/setlist/internal/queue"
)

// ErrNoop is returned for a local gesture that would not change the queue.
var ErrNoop = errors.New("no change")

// PendingOp is a local mutation that has been applied to the mirror and
// submitted, but whose result has not come back yet.
type PendingOp struct {
	ID       string
	EntryID  string
	Op       string
	OldIndex int
	NewIndex int
	IssuedAt time.Time
}

// Request builds the wire body for the op.
func (p PendingOp) Request() api.MutationRequest {
	req := api.MutationRequest{Op: p.Op}
	switch p.Op {
	case api.OpReorder:
		req.OldIndex = api.Int(p.OldIndex)
		req.NewIndex = api.Int(p.NewIndex)
	case api.OpMoveToTop:
		req.OldIndex = api.Int(p.OldIndex)
	case api.OpRemove:
		req.ID = p.EntryID
	}
	return req
}

// Label names the op for notices.
func (p PendingOp) Label() string {
	switch p.Op {
	case api.OpReorder:
		return "move"
	case api.OpMoveToTop:
		return "move to top"
	case api.OpRemove:
		return "remove"
	default:
		return p.Op
	}
}

// Mirror represents the latest queue data available to the UI.
type Mirror struct {
	Context             string
	Entries             []api.Entry
	CurrentTrack        *api.Entry
	Status              string
	Version             uint64
	HasSnapshot         bool
	Pending             []PendingOp
	LastUpdated         time.Time
	LastError           error
	Notice              string
	NoticeAt            time.Time
	ConsecutiveFailures int
}

// IsOffline returns true when the daemon has been unreachable for multiple polls.
func (m Mirror) IsOffline() bool {
	return m.ConsecutiveFailures >= 2
}

// IDs returns the mirrored entry ids in order.
func (m Mirror) IDs() []string {
	ids := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Reconciler keeps the client-side mirror of one channel context. The
// latest server snapshot always wins; local gestures are applied
// optimistically and never rolled back.
type Reconciler struct {
	mu     sync.RWMutex
	mirror Mirror
	clock  clock.Clock
	render func()
}

// NewReconciler creates a Reconciler for key. render, when set, is called
// after every change, outside the lock.
func NewReconciler(key string, clk clock.Clock, render func()) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	return &Reconciler{
		mirror: Mirror{Context: key, Status: api.StatusDisconnected},
		clock:  clk,
		render: render,
	}
}

// SetContext switches to another channel context and forgets everything
// mirrored for the previous one.
func (r *Reconciler) SetContext(key string) {
	r.update(func(m *Mirror) bool {
		if m.Context == key {
			return false
		}
		*m = Mirror{Context: key, Status: api.StatusDisconnected}
		return true
	})
}

// Context returns the selected channel context.
func (r *Reconciler) Context() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mirror.Context
}

// OnSnapshotReceived replaces the mirror with snap. Pending ops whose entry
// is no longer queued are dropped. Applying the same snapshot twice leaves
// the mirror unchanged. Snapshots for another context, or older than the
// one already mirrored, are ignored.
func (r *Reconciler) OnSnapshotReceived(snap api.Snapshot) {
	r.update(func(m *Mirror) bool {
		if snap.Context != "" && m.Context != "" && snap.Context != m.Context {
			return false
		}
		if m.HasSnapshot && snap.Version < m.Version {
			return false
		}
		m.Entries = reposition(snap.Entries)
		m.CurrentTrack = nil
		if snap.CurrentTrack != nil {
			cur := *snap.CurrentTrack
			m.CurrentTrack = &cur
		}
		m.Status = snap.ConnectionStatus
		if m.Status == "" {
			m.Status = api.StatusDisconnected
		}
		m.Version = snap.Version
		m.HasSnapshot = true

		present := make(map[string]struct{}, len(m.Entries))
		for _, e := range m.Entries {
			present[e.ID] = struct{}{}
		}
		kept := m.Pending[:0]
		for _, op := range m.Pending {
			if _, ok := present[op.EntryID]; ok {
				kept = append(kept, op)
			}
		}
		m.Pending = kept

		m.LastError = nil
		m.LastUpdated = r.clock.Now()
		m.ConsecutiveFailures = 0
		return true
	})
}

// OnLocalDragMove applies a reorder to the mirror and records it as pending.
// The returned op should be submitted by the caller.
func (r *Reconciler) OnLocalDragMove(oldIndex, newIndex int) (PendingOp, error) {
	return r.local(api.OpReorder, oldIndex, newIndex)
}

// OnLocalMoveToTop is OnLocalDragMove to index 0.
func (r *Reconciler) OnLocalMoveToTop(index int) (PendingOp, error) {
	return r.local(api.OpMoveToTop, index, 0)
}

// OnLocalRemove drops the entry at index from the mirror.
func (r *Reconciler) OnLocalRemove(index int) (PendingOp, error) {
	return r.local(api.OpRemove, index, -1)
}

func (r *Reconciler) local(op string, oldIndex, newIndex int) (PendingOp, error) {
	var pending PendingOp
	var err error
	r.update(func(m *Mirror) bool {
		n := len(m.Entries)
		if oldIndex < 0 || oldIndex >= n {
			err = &queue.OutOfRangeError{Index: oldIndex, Len: n}
			return false
		}
		if op != api.OpRemove && (newIndex < 0 || newIndex >= n) {
			err = &queue.OutOfRangeError{Index: newIndex, Len: n}
			return false
		}
		if op != api.OpRemove && oldIndex == newIndex {
			err = ErrNoop
			return false
		}
		pending = PendingOp{
			ID:       uuid.NewString(),
			EntryID:  m.Entries[oldIndex].ID,
			Op:       op,
			OldIndex: oldIndex,
			NewIndex: newIndex,
			IssuedAt: r.clock.Now(),
		}
		if op == api.OpRemove {
			next := make([]api.Entry, 0, n-1)
			next = append(next, m.Entries[:oldIndex]...)
			next = append(next, m.Entries[oldIndex+1:]...)
			m.Entries = reposition(next)
		} else {
			m.Entries = reposition(splice(m.Entries, oldIndex, newIndex))
		}
		m.Pending = append(m.Pending, pending)
		return true
	})
	return pending, err
}

// OnSubmitResult settles a pending op. A failure leaves the optimistic
// mirror in place and records a notice; the next snapshot corrects it.
func (r *Reconciler) OnSubmitResult(op PendingOp, err error) {
	r.update(func(m *Mirror) bool {
		for i, p := range m.Pending {
			if p.ID == op.ID {
				m.Pending = append(m.Pending[:i], m.Pending[i+1:]...)
				break
			}
		}
		if err != nil {
			m.Notice = FailureNotice(op.Label(), err)
			m.NoticeAt = r.clock.Now()
		}
		return true
	})
}

// OnActionFailed records a notice for a failed control action.
func (r *Reconciler) OnActionFailed(action string, err error) {
	if err == nil {
		return
	}
	r.SetNotice(FailureNotice(action, err))
}

// SetNotice shows a transient message.
func (r *Reconciler) SetNotice(msg string) {
	r.update(func(m *Mirror) bool {
		m.Notice = msg
		m.NoticeAt = r.clock.Now()
		return true
	})
}

// OnFetchFailed keeps the previous data and records the error.
func (r *Reconciler) OnFetchFailed(err error) {
	if err == nil {
		return
	}
	r.update(func(m *Mirror) bool {
		m.LastError = err
		m.LastUpdated = r.clock.Now()
		m.ConsecutiveFailures++
		return true
	})
}

// Mirror returns a copy of the current mirror.
func (r *Reconciler) Mirror() Mirror {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.mirror
	m.Entries = cloneEntries(r.mirror.Entries)
	if r.mirror.CurrentTrack != nil {
		cur := *r.mirror.CurrentTrack
		m.CurrentTrack = &cur
	}
	if len(r.mirror.Pending) > 0 {
		m.Pending = append([]PendingOp(nil), r.mirror.Pending...)
	} else {
		m.Pending = nil
	}
	if r.mirror.LastError != nil {
		m.LastError = fmt.Errorf("%w", r.mirror.LastError)
	}
	return m
}

// DisplayStatus returns the connection label shown in the header. It only
// ever reflects the last snapshot.
func (r *Reconciler) DisplayStatus() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch r.mirror.Status {
	case api.StatusConnected:
		return "Connected"
	case api.StatusPlaying:
		return "Playing"
	case api.StatusPaused:
		return "Paused"
	default:
		return "Disconnected"
	}
}

// FailureNotice renders the message shown when an action fails.
func FailureNotice(action string, err error) string {
	var netErr *client.TransientNetworkError
	switch {
	case client.IsCode(err, api.CodeBadCSRF):
		return "Session expired, press R to renew"
	case client.IsCode(err, api.CodeOutOfRange), client.IsCode(err, api.CodeNotFound):
		return fmt.Sprintf("Could not %s: queue changed, refreshing", action)
	case errors.As(err, &netErr):
		return fmt.Sprintf("Could not %s: daemon unreachable", action)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Sprintf("Could not %s: %s", action, apiErr.Message)
	}
	return fmt.Sprintf("Could not %s", action)
}

func (r *Reconciler) update(fn func(*Mirror) bool) {
	r.mu.Lock()
	changed := fn(&r.mirror)
	r.mu.Unlock()
	if changed && r.render != nil {
		r.render()
	}
}

// splice moves entries[from] to index to, shifting the rest.
func splice(entries []api.Entry, from, to int) []api.Entry {
	out := make([]api.Entry, 0, len(entries))
	moved := entries[from]
	for i, e := range entries {
		if i != from {
			out = append(out, e)
		}
	}
	out = append(out, api.Entry{})
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

func reposition(entries []api.Entry) []api.Entry {
	out := make([]api.Entry, len(entries))
	for i, e := range entries {
		e.Position = i
		out[i] = e
	}
	return out
}

func cloneEntries(entries []api.Entry) []api.Entry {
	if len(entries) == 0 {
		return nil
	}
	dup := make([]api.Entry, len(entries))
	copy(dup, entries)
	return dup
}
