package server

import (
	"sync"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/queue"
	"github.com/five82/setlist/internal/snapshot"
)

// Hub fans committed snapshots out to watchers of each context. A slow
// watcher only ever holds the newest snapshot; older ones are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan api.Snapshot]struct{}
	last map[string]uint64
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan api.Snapshot]struct{}),
		last: make(map[string]uint64),
	}
}

// Attach publishes every commit in registry.
func (h *Hub) Attach(registry *queue.Registry) {
	registry.OnCommit(func(st queue.State) {
		h.Publish(snapshot.Produce(st))
	})
}

// Subscribe returns a channel of snapshots for key and a cancel func.
func (h *Hub) Subscribe(key string) (<-chan api.Snapshot, func()) {
	ch := make(chan api.Snapshot, 1)
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan api.Snapshot]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], ch)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
		})
	}
}

// Publish delivers snap to every watcher of its context. Snapshots older
// than one already published are ignored.
func (h *Hub) Publish(snap api.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if last, ok := h.last[snap.Context]; ok && snap.Version <= last {
		return
	}
	h.last[snap.Context] = snap.Version
	for ch := range h.subs[snap.Context] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Watchers returns the number of live subscriptions for key.
func (h *Hub) Watchers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
