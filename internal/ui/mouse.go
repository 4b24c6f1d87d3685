package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/setlist/internal/drag"
)

// rowRects returns the screen geometry of every queue row, including rows
// scrolled out of view, in terminal cells.
func (m Model) rowRects() []drag.Rect {
	rects := make([]drag.Rect, len(m.mirror.Entries))
	for i := range rects {
		rects[i] = drag.Rect{Top: float64(firstRowY + i - m.offset), Height: 1}
	}
	return rects
}

// rowAt maps a terminal row to a queue index, or -1.
func (m Model) rowAt(y int) int {
	rel := y - firstRowY
	if rel < 0 || rel >= m.visibleRows() {
		return -1
	}
	idx := m.offset + rel
	if idx >= len(m.mirror.Entries) {
		return -1
	}
	return idx
}

// pointerY converts a terminal row into a pointer position. A cell only
// says which row is hovered, so the pointer is placed on the edge of that
// row facing away from the drag origin; hovering row k then drops at k.
func (m Model) pointerY(y, start int) float64 {
	rel := y - firstRowY
	rows := m.visibleRows()
	if rel < 0 {
		rel = 0
	}
	if rows > 0 && rel >= rows {
		rel = rows - 1
	}
	idx := min(m.offset+rel, len(m.mirror.Entries)-1)
	top := float64(firstRowY + idx - m.offset)
	switch {
	case idx > start:
		return top + 1
	case idx < start:
		return top
	default:
		return top + 0.5
	}
}

// handleMouse runs the drag gesture and wheel scrolling.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.showHelp || m.modal != nil || m.currentView != ViewQueue {
		return m, nil
	}
	n := len(m.mirror.Entries)
	if n == 0 {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.selectIndex(m.selected - 1)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.selectIndex(m.selected + 1)
		return m, nil
	}

	m.drag.Layout = m.rowRects
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		idx := m.rowAt(msg.Y)
		if idx < 0 {
			return m, nil
		}
		m.selectIndex(idx)
		m.drag.Press(idx)
		return m, nil

	case tea.MouseActionMotion:
		start, _, ok := m.drag.Active()
		if !ok {
			return m, nil
		}
		m.drag.Motion(m.pointerY(msg.Y, start))
		return m, nil

	case tea.MouseActionRelease:
		start, _, ok := m.drag.Active()
		if !ok {
			return m, nil
		}
		op, moved := m.drag.Release(m.pointerY(msg.Y, start))
		if !moved {
			return m, nil
		}
		return m.localMove(op.OldIndex, op.NewIndex)
	}
	return m, nil
}
