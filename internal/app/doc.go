// Package app is the composition root of the setlist dashboard.
//
// # Overview
//
// Run wires configuration, logging, the daemon client, the reconciler, the
// poll scheduler, the watch stream and the terminal UI, then blocks until
// the UI exits or the context is cancelled.
//
// # Data Flow
//
//	┌──────────────┐  FetchSnapshot   ┌──────────────┐
//	│ poll.Sched   │ ───────────────> │              │
//	└──────────────┘                  │   setlistd   │
//	┌──────────────┐  /watch frames   │              │
//	│ watchLoop    │ <─────────────── │              │
//	└──────┬───────┘                  └──────▲───────┘
//	       │ OnSnapshotReceived              │ Submit
//	       ▼                                 │
//	┌──────────────┐  notifier   ┌───────────┴──┐
//	│ Reconciler   │ ──────────> │  ui.Model    │
//	└──────────────┘             └──────────────┘
//
// Both the poller and the watch stream feed the same reconciler; the latest
// snapshot always wins. The watch stream is an optimisation: when it is
// down the 10 second poll still converges the mirror.
//
// # Components
//
//   - app.go: Run and the wiring above
//   - watch.go: reconnecting watch loop with capped exponential backoff
//   - notify.go: non-blocking bridge from reconciler callbacks into the
//     Bubble Tea program
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - invalid configuration file
//   - log file or client initialisation failure
//
// Recoverable errors (logged to the dashboard log, shown as notices):
//   - snapshot fetch failures and timeouts
//   - watch stream drops
//   - rejected mutations
//
// Logs go to a file because the alternate screen owns the terminal.
package app
