package queue

import (
	"strings"
	"time"
)

// Entry is one playable item waiting in a queue.
type Entry struct {
	ID        string
	Title     string
	SourceRef string
}

// ConnectionStatus is the media collaborator's reported connection state.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connected
	Playing
	Paused
)

func (s ConnectionStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "disconnected"
	}
}

// ParseConnectionStatus maps the wire form back to a ConnectionStatus.
// Unknown values read as Disconnected.
func ParseConnectionStatus(raw string) ConnectionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "connected":
		return Connected
	case "playing":
		return Playing
	case "paused":
		return Paused
	default:
		return Disconnected
	}
}

// State is the authoritative queue for one channel context.
type State struct {
	Context      string
	Entries      []Entry
	CurrentTrack *Entry
	Status       ConnectionStatus
	Version      uint64
	UpdatedAt    time.Time
}

// Len returns the number of waiting entries.
func (s State) Len() int {
	return len(s.Entries)
}

// IndexOf returns the position of the entry with id, or -1.
func (s State) IndexOf(id string) int {
	for i, e := range s.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the entry ids in queue order.
func (s State) IDs() []string {
	ids := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s State) Clone() State {
	dup := s
	dup.Entries = cloneEntries(s.Entries)
	if s.CurrentTrack != nil {
		cur := *s.CurrentTrack
		dup.CurrentTrack = &cur
	}
	return dup
}

// ReorderOperation moves the entry at OldIndex so that it ends up at NewIndex.
type ReorderOperation struct {
	OldIndex int
	NewIndex int
}

// Move applies op to entries in place semantics on a copy: the element at
// OldIndex is removed and reinserted at NewIndex of the shortened slice.
// Callers validate the indices first.
func Move(entries []Entry, op ReorderOperation) []Entry {
	out := cloneEntries(entries)
	if op.OldIndex == op.NewIndex {
		return out
	}
	moved := out[op.OldIndex]
	out = append(out[:op.OldIndex], out[op.OldIndex+1:]...)
	out = append(out, Entry{})
	copy(out[op.NewIndex+1:], out[op.NewIndex:])
	out[op.NewIndex] = moved
	return out
}

func cloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	dup := make([]Entry, len(entries))
	copy(dup, entries)
	return dup
}
