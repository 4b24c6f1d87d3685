package queue

import (
	"sort"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
)

// Registry hands out one Store per channel context. Contexts never share a
// store lock; the registry lock only guards the map itself.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store
	clock  clock.Clock
	hooks  []CommitHook
}

// NewRegistry creates an empty registry.
func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{stores: make(map[string]*Store), clock: clk}
}

// NormalizeKey trims a channel context key. The empty string is not a valid key.
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// OnCommit registers a hook attached to every store, present and future.
func (r *Registry) OnCommit(hook CommitHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.Unlock()
	for _, s := range stores {
		s.OnCommit(hook)
	}
}

// Get returns the store for key, creating an empty one on first use.
func (r *Registry) Get(key string) *Store {
	key = NormalizeKey(key)
	r.mu.RLock()
	s, ok := r.stores[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s
	}
	s = NewStore(key, r.clock)
	for _, hook := range r.hooks {
		s.OnCommit(hook)
	}
	r.stores[key] = s
	return s
}

// Lookup returns the store for key without creating it.
func (r *Registry) Lookup(key string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[NormalizeKey(key)]
	return s, ok
}

// Keys lists the known contexts in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Drop forgets a context. Callers holding the old *Store keep a detached copy.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	delete(r.stores, NormalizeKey(key))
	r.mu.Unlock()
}
