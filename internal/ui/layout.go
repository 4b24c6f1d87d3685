package ui

import "time"

// Screen rows above the first queue row: header, command bar, box border.
const firstRowY = 3

// LayoutCompactWidth is the width below which the header drops detail.
const LayoutCompactWidth = 100

// Timing constants.
const (
	// NoticeTTL is how long a transient notice stays in the command bar.
	NoticeTTL = 6 * time.Second

	// UITick drives notice expiry and the log pane refresh.
	UITick = time.Second

	// DefaultRequestTimeout bounds one mutation submit.
	DefaultRequestTimeout = 5 * time.Second
)

// LogPaneLines is how many log records the log view keeps.
const LogPaneLines = 500
