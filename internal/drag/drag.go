// Package drag turns pointer gestures over a vertical list into reorder
// operations.
package drag

import (
	"sync"

	"github.com/five82/setlist/internal/queue"
)

// Rect is a row's vertical extent in whatever unit the pointer reports.
type Rect struct {
	Top    float64
	Height float64
}

// Mid returns the row's vertical midpoint.
func (r Rect) Mid() float64 { return r.Top + r.Height/2 }

// Bottom returns the row's lower edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// DropIndex returns where the row dragged from start lands when released at
// pointerY. The row nearest the pointer is the target; above its midpoint
// the dragged row goes before it, otherwise after. The result indexes the
// list with the dragged row already removed, which is the newIndex a
// reorder expects.
func DropIndex(rows []Rect, start int, pointerY float64) int {
	n := len(rows)
	if n == 0 || start < 0 || start >= n {
		return start
	}
	target := nearest(rows, pointerY)
	slot := target
	if pointerY >= rows[target].Mid() {
		slot++
	}
	if slot > start {
		slot--
	}
	if slot < 0 {
		slot = 0
	}
	if slot > n-1 {
		slot = n - 1
	}
	return slot
}

func nearest(rows []Rect, y float64) int {
	best, bestDist := 0, -1.0
	for i, r := range rows {
		var d float64
		switch {
		case y < r.Top:
			d = r.Top - y
		case y > r.Bottom():
			d = y - r.Bottom()
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
		if d == 0 {
			break
		}
	}
	return best
}

// Handler tracks a single drag gesture. Layout supplies the current row
// geometry; it is read on every motion so scrolling mid-drag is honored.
type Handler struct {
	Layout func() []Rect

	mu     sync.Mutex
	active bool
	start  int
	hover  int
}

// NewHandler returns a Handler reading geometry from layout.
func NewHandler(layout func() []Rect) *Handler {
	return &Handler{Layout: layout}
}

// Press begins a drag on the row at index. Presses outside the list are
// ignored.
func (h *Handler) Press(index int) bool {
	rows := h.rows()
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(rows) {
		h.active = false
		return false
	}
	h.active = true
	h.start = index
	h.hover = index
	return true
}

// Motion updates the prospective drop index and returns it.
func (h *Handler) Motion(y float64) (int, bool) {
	rows := h.rows()
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return 0, false
	}
	h.hover = DropIndex(rows, h.start, y)
	return h.hover, true
}

// Release ends the drag. It reports an operation only when the row moves.
func (h *Handler) Release(y float64) (queue.ReorderOperation, bool) {
	rows := h.rows()
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return queue.ReorderOperation{}, false
	}
	h.active = false
	drop := DropIndex(rows, h.start, y)
	if drop == h.start || h.start >= len(rows) {
		return queue.ReorderOperation{}, false
	}
	return queue.ReorderOperation{OldIndex: h.start, NewIndex: drop}, true
}

// Cancel abandons the drag without emitting anything.
func (h *Handler) Cancel() {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}

// Active reports whether a drag is in progress, and from which row.
func (h *Handler) Active() (start, hover int, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.start, h.hover, h.active
}

func (h *Handler) rows() []Rect {
	if h.Layout == nil {
		return nil
	}
	return h.Layout()
}
