package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/setlist/internal/logtail"
)

// logState holds the log pane.
type logState struct {
	viewport viewport.Model
	lines    []logtail.Line
	err      error
	follow   bool
}

func newLogState() logState {
	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()
	return logState{viewport: vp, follow: true}
}

// setLogLines replaces the tailed lines and re-renders the viewport.
func (m *Model) setLogLines(lines []logtail.Line, err error) {
	m.logs.lines = lines
	m.logs.err = err
	m.resizeLogViewport()
	m.logs.viewport.SetContent(m.renderLogContent())
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m *Model) resizeLogViewport() {
	// Box inner height: screen minus header, cmdbar, status line, borders.
	m.logs.viewport.Width = max(m.width-4, 0)
	m.logs.viewport.Height = max(m.height-5, 0)
	m.logs.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
}

// renderLogContent formats every tailed line with level colors.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.FocusBg)
	if m.logs.err != nil {
		return bg.Render("Log unavailable: "+m.logs.err.Error(), styles.DangerText)
	}
	if len(m.logs.lines) == 0 {
		return bg.Render("No log output yet", styles.MutedText)
	}
	width := m.logs.viewport.Width
	out := make([]string, 0, len(m.logs.lines))
	for _, line := range m.logs.lines {
		out = append(out, m.formatLogLine(line, width, bg, styles))
	}
	return strings.Join(out, "\n")
}

func (m Model) formatLogLine(line logtail.Line, width int, bg BgStyle, styles Styles) string {
	if line.Raw {
		return bg.Render(truncate(line.Message, width), styles.MutedText)
	}
	ts := "--:--:--"
	if !line.Time.IsZero() {
		ts = line.Time.Local().Format("15:04:05")
	}
	levelStyle := styles.MutedText
	switch strings.ToUpper(line.Level) {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		levelStyle = styles.DangerText
	case "WARN":
		levelStyle = styles.WarningText
	case "INFO":
		levelStyle = styles.AccentText
	}
	level := fmt.Sprintf("%-5s", strings.ToUpper(line.Level))
	msg := line.Message
	if line.Fields != "" {
		msg += " " + line.Fields
	}
	msgWidth := max(width-len(ts)-len(level)-2, 10)
	return bg.Render(ts, styles.FaintText) + bg.Space() +
		bg.Render(level, levelStyle) + bg.Space() +
		bg.Render(truncate(msg, msgWidth), styles.Text)
}

// renderLogs renders the log view with a status line below the box.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)
	contentHeight := m.height - 3

	title := "Dashboard log"
	if m.logPath != "" {
		title += " · " + truncate(m.logPath, 50)
	}
	box := m.renderTitledBox(title, m.logs.viewport.View(), m.width, contentHeight, true)

	mode := "paused"
	if m.logs.follow {
		mode = "following"
	}
	status := bg.Render(fmt.Sprintf("%d lines", len(m.logs.lines)), styles.MutedText) + bg.Spaces(2) +
		bg.Render(mode, styles.AccentText) + bg.Spaces(2) +
		bg.Render("space toggles follow · esc returns", styles.FaintText)
	return box + "\n" + bg.FillLine(status, m.width)
}

// handleLogKey scrolls the log pane.
func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.PlayPause):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
		}
	case key.Matches(msg, m.keys.Down):
		m.logs.follow = false
		m.logs.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logs.follow = false
		m.logs.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.logs.follow = false
		m.logs.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logs.follow = true
		m.logs.viewport.GotoBottom()
	}
	return m, nil
}
