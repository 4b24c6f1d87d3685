package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/setlist/internal/api"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("setlist", styles.Logo)}

	status := m.rec.DisplayStatus()
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(m.mirror.Status))).Bold(true)
	if m.mirror.IsOffline() {
		parts = append(parts, bg.Render("● Daemon unreachable", styles.DangerText))
	} else if !m.mirror.HasSnapshot {
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	} else {
		parts = append(parts, bg.Render("● "+status, statusStyle))
	}

	if m.mirror.Context != "" {
		parts = append(parts,
			bg.Render("Channel:", styles.MutedText)+bg.Space()+
				bg.Render(truncate(m.mirror.Context, 24), styles.AccentText))
	}

	if cur := m.mirror.CurrentTrack; cur != nil && m.mirror.Status != api.StatusDisconnected {
		limit := 40
		if compact {
			limit = 20
		}
		parts = append(parts,
			bg.Render("Now:", styles.MutedText)+bg.Space()+
				bg.Render(truncate(cur.Title, limit), styles.Text))
	}

	parts = append(parts,
		bg.Render("Queue:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.mirror.Entries)), styles.Text))

	if n := len(m.mirror.Pending); n > 0 {
		parts = append(parts,
			bg.Render("Pending:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", n), styles.WarningText))
	}

	if !compact && !m.mirror.LastUpdated.IsZero() {
		parts = append(parts,
			bg.Render("Updated", styles.FaintText)+bg.Space()+
				bg.Render(m.mirror.LastUpdated.Format("15:04:05"), styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, sep))
}

// renderCommandBar shows the active notice, or key hints when there is none.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)

	if notice := m.activeNotice(); notice != "" {
		style := styles.WarningText
		if m.mirror.IsOffline() {
			style = styles.DangerText
		}
		return bg.FillLine(bg.Render(truncate(notice, m.width-1), style), m.width)
	}

	if m.mirror.IsOffline() {
		msg := fmt.Sprintf("Retrying every %s", m.pollHint())
		return bg.FillLine(bg.Render(msg, styles.DangerText), m.width)
	}

	hints := []struct{ key, desc string }{
		{"a", "Add"},
		{"drag/J/K", "Move"},
		{"t", "Top"},
		{"d", "Remove"},
		{"b/L", "Join/Leave"},
		{"space", "Pause"},
		{"c", "Channel"},
		{"h", "Help"},
	}
	if m.width < LayoutCompactWidth {
		hints = hints[:4]
	}
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts,
			bg.Render(h.key, styles.AccentText)+bg.Space()+bg.Render(h.desc, styles.MutedText))
	}
	return bg.FillLine(bg.Join(parts, "  "), m.width)
}

func (m Model) pollHint() string {
	if m.interval <= 0 {
		return "10s"
	}
	return m.interval.Round(time.Second).String()
}
