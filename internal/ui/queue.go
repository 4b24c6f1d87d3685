package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/setlist/internal/api"
)

// renderQueue renders the channel queue as one titled box.
func (m Model) renderQueue() string {
	styles := m.theme.Styles()
	contentHeight := m.height - 2 // header + cmdbar

	if m.mirror.Context == "" {
		msg := styles.MutedText.Render("No channel selected. Press c to pick one.")
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, msg)
	}

	var content string
	if len(m.mirror.Entries) == 0 {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(m.theme.FocusBg)).
			Render("Queue is empty. Press a to add tracks.")
	} else {
		content = m.renderQueueRows(m.width-2, m.theme.FocusBg)
	}
	return m.renderTitledBox(m.queueTitle(), content, m.width, contentHeight, true)
}

func (m Model) queueTitle() string {
	title := fmt.Sprintf("Queue · %s (%d)", m.mirror.Context, len(m.mirror.Entries))
	if n := len(m.mirror.Pending); n > 0 {
		title += fmt.Sprintf(" · %d pending", n)
	}
	if start, hover, ok := m.drag.Active(); ok && hover != start {
		title += fmt.Sprintf(" · moving %d → %d", start+1, hover+1)
	}
	return title
}

// displayEntries returns the entries in the order they should be drawn and
// the row index of the entry being dragged, or -1.
func (m Model) displayEntries() ([]api.Entry, int) {
	entries := m.mirror.Entries
	start, hover, ok := m.drag.Active()
	if !ok || start < 0 || start >= len(entries) {
		return entries, -1
	}
	hover = max(0, min(hover, len(entries)-1))
	if hover == start {
		return entries, start
	}
	preview := make([]api.Entry, 0, len(entries))
	moved := entries[start]
	for i, e := range entries {
		if i != start {
			preview = append(preview, e)
		}
	}
	preview = append(preview[:hover], append([]api.Entry{moved}, preview[hover:]...)...)
	return preview, hover
}

// renderQueueRows renders the visible window of queue rows.
func (m Model) renderQueueRows(width int, bgColor string) string {
	entries, dragged := m.displayEntries()
	rows := m.visibleRows()
	if rows <= 0 {
		return ""
	}
	end := min(len(entries), m.offset+rows)

	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		rowBg := bgColor
		var mode rowMode
		switch {
		case i == dragged:
			rowBg = m.theme.DragBg
			mode = rowDragged
		case dragged < 0 && i == m.selected:
			rowBg = m.theme.SelectionBg
			mode = rowSelected
		}
		content := m.formatQueueRow(i, entries[i], width, rowBg, mode)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

type rowMode int

const (
	rowNormal rowMode = iota
	rowSelected
	rowDragged
)

// formatQueueRow formats one row: "  3  Title · source".
func (m Model) formatQueueRow(index int, entry api.Entry, width int, bgColor string, mode rowMode) string {
	bg := NewBgStyle(bgColor)

	num := fmt.Sprintf("%3d", index+1)
	marker := " "
	if m.isPending(entry.ID) {
		marker = "~"
	}
	if mode == rowDragged {
		marker = "≡"
	}
	source := entry.SourceRef
	if source == entry.Title {
		source = ""
	}

	sourceWidth := 0
	if source != "" && width >= LayoutCompactWidth/2 {
		sourceWidth = min(len([]rune(source)), width/3)
	}
	titleWidth := max(width-len(num)-4-sourceWidth, 10)
	if sourceWidth > 0 {
		titleWidth -= 3
	}

	var numStyle, markStyle, titleStyle, sepStyle, sourceStyle lipgloss.Style
	styles := m.theme.Styles()
	switch mode {
	case rowSelected:
		sel := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		numStyle, markStyle, titleStyle, sepStyle, sourceStyle = sel, sel, sel.Bold(true), sel, sel
	case rowDragged:
		numStyle = styles.MutedText
		markStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.DropMarker)).Bold(true)
		titleStyle = styles.Text.Bold(true)
		sepStyle = styles.FaintText
		sourceStyle = styles.MutedText
	default:
		numStyle = styles.MutedText
		markStyle = styles.WarningText
		titleStyle = styles.Text
		sepStyle = styles.FaintText
		sourceStyle = styles.MutedText
	}

	out := bg.Render(num, numStyle) + bg.Space() + bg.Render(marker, markStyle) + bg.Space() +
		bg.Render(truncate(entry.Title, titleWidth), titleStyle)
	if sourceWidth > 0 {
		out += bg.Render(" · ", sepStyle) + bg.Render(truncate(source, sourceWidth), sourceStyle)
	}
	return out
}

func (m Model) isPending(entryID string) bool {
	for _, p := range m.mirror.Pending {
		if p.EntryID == entryID {
			return true
		}
	}
	return false
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).Background(lipgloss.Color(bgColorStr))
	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2

	padded := make([]string, 0, max(boxHeight, 0))
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		padded = append(padded,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}
	return topBorder + "\n" + strings.Join(padded, "\n") + "\n" + bottomBorder
}
