// Package ui provides the terminal dashboard for one channel's queue.
//
// # Architecture Overview
//
// The dashboard is a Bubble Tea program. Model holds UI state and a copy of
// the reconciler's mirror; every queue edit goes through state.Reconciler
// first (optimistic, never rolled back) and is then submitted to the daemon
// as a single mutation. Snapshots from polling and the watch stream land in
// the reconciler, which notifies the program with MirrorChangedMsg.
//
// # Files
//
//   - app.go: Model, Update loop, commands and Run
//   - queue.go: queue box, row formatting and drag preview
//   - mouse.go: maps terminal mouse events onto drag.Handler
//   - header.go: status bar and command bar
//   - modal.go: add form and channel picker
//   - logs.go: dashboard log pane
//   - theme.go, keys.go, layout.go, style_helpers.go: presentation
//
// # Gestures
//
// A mouse drag runs Press, Motion and Release on drag.Handler. Terminal rows
// are one cell tall, so the pointer is placed on the edge of the hovered row
// facing away from the drag origin and the drop lands on that row. Dropping
// a row where it started emits nothing.
//
// J/K move the selected entry one slot, t moves it to the top and d removes
// it. Control actions (join, leave, pause, skip, clear, shuffle, add) are
// not applied locally; the reply snapshot and a settle refresh update the
// mirror instead.
//
// # Key Bindings
//
//   - j/k, g/G: move selection
//   - J/K, t, d: reorder, move to top, remove
//   - a: add tracks (comma-separated refs add one batch)
//   - b/L: join/leave voice
//   - space, s: pause or resume, skip
//   - C/S: clear, shuffle
//   - c: switch channel
//   - r/R: refresh now, renew session
//   - tab or l: dashboard log, esc returns
//   - T: cycle theme
//   - e or Ctrl+C: exit
package ui
