// Package state keeps the dashboard's mirror of one channel context's queue.
//
// # Overview
//
// The Reconciler is where server snapshots meet local gestures. The poll
// scheduler and the optional websocket stream feed it snapshots; the UI
// applies drag and keyboard moves to it optimistically and submits them in
// the background.
//
// # Architecture
//
//	Producers:                       Consumer (UI):
//	┌──────────────────────┐        ┌────────────────────┐
//	│ poll.Scheduler       │        │                    │
//	│ client.Watch         │───────→│ r.Mirror()         │
//	│  OnSnapshotReceived  │ (mutex)│      ↓             │
//	│ UI gestures          │        │  render queue      │
//	│  OnLocalDragMove     │        │                    │
//	│  OnSubmitResult      │        │                    │
//	└──────────────────────┘        └────────────────────┘
//
// # Reconciliation Rules
//
//   - A snapshot replaces entries, current track and status wholesale. The
//     server is authoritative; the mirror never merges.
//   - Pending ops whose entry id is absent from a snapshot are dropped.
//   - A settled op leaves Pending whether it succeeded or failed.
//   - A failed submit is not rolled back. The mirror keeps the optimistic
//     order and shows a notice until the next snapshot arrives.
//   - DisplayStatus is derived from the last snapshot only.
//
// # Offline Detection
//
// ConsecutiveFailures counts fetch failures since the last good snapshot.
// IsOffline reports true at two or more.
package state
