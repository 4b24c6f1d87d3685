// Package snapshot flattens queue state into the transfer form sent to clients.
package snapshot

import (
	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/queue"
)

// Produce converts st into an order-preserving api.Snapshot. It has no side
// effects and never blocks.
func Produce(st queue.State) api.Snapshot {
	out := api.Snapshot{
		Context:          st.Context,
		ConnectionStatus: st.Status.String(),
		Entries:          make([]api.Entry, len(st.Entries)),
		Version:          st.Version,
		UpdatedAt:        st.UpdatedAt,
	}
	for i, e := range st.Entries {
		out.Entries[i] = entry(e, i)
	}
	if st.CurrentTrack != nil {
		cur := entry(*st.CurrentTrack, -1)
		out.CurrentTrack = &cur
	}
	return out
}

// Empty is the snapshot of a context nobody has touched yet.
func Empty(key string) api.Snapshot {
	return Produce(queue.State{Context: queue.NormalizeKey(key)})
}

func entry(e queue.Entry, pos int) api.Entry {
	return api.Entry{ID: e.ID, Title: e.Title, SourceRef: e.SourceRef, Position: pos}
}
