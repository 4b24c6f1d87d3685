package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	Renew      key.Binding
	Context    key.Binding
	ViewLogs   key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Queue edits
	MoveUp    key.Binding
	MoveDown  key.Binding
	MoveToTop key.Binding
	Remove    key.Binding
	Add       key.Binding
	Clear     key.Binding
	Shuffle   key.Binding

	// Playback
	Join      key.Binding
	Leave     key.Binding
	PlayPause key.Binding
	Skip      key.Binding

	// Forms
	Confirm key.Binding
	Next    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Queue/Logs"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh now"),
		),
		Renew: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Renew session"),
		),
		Context: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Switch channel"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Dashboard log"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Select up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Select down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "First entry"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Last entry"),
		),

		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "Move entry up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "Move entry down"),
		),
		MoveToTop: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Move to top"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "Remove entry"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add entries"),
		),
		Clear: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear queue"),
		),
		Shuffle: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Shuffle"),
		),

		Join: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Bot join"),
		),
		Leave: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Bot leave"),
		),
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Pause/Resume"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Skip track"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Switch field"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view, one column per group.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.MoveUp, k.MoveDown, k.MoveToTop, k.Remove, k.Add, k.Clear, k.Shuffle},
		{k.Join, k.Leave, k.PlayPause, k.Skip},
		{k.Tab, k.ViewLogs, k.Context, k.Refresh, k.Renew, k.CycleTheme, k.Help, k.Quit},
	}
}
