// Package queue holds the authoritative playback queues served by setlistd.
//
// # Overview
//
// Each channel context (a voice channel inside a server, keyed by an opaque
// string) owns exactly one Store. The Store is the single source of truth for
// the ordered entries waiting to play, the track currently playing, and the
// connection status the media collaborator last reported.
//
// # Concurrency Model
//
// Every mutation runs under the store's write lock from validation through
// the splice, so two reorders that arrive together are applied one after the
// other and never interleave:
//
//	ApplyReorder(op) ──> Lock ──> check indices against live length
//	                              ├─ invalid ──> OutOfRangeError, state untouched
//	                              └─ valid   ──> splice, Version++ ──> Unlock ──> hooks
//
// Current() takes the read lock and returns a deep copy, so a reader sees
// either the state before a mutation or the state after it.
//
// Stores for different contexts are independent; the Registry lock is held
// only long enough to find or create a store.
//
// # Positions
//
// Positions are never stored. An entry's position is its index in Entries,
// so removing an entry shifts later entries down without a renumbering step.
//
// # Errors
//
//   - OutOfRangeError: reorder index negative or not below the current length
//   - NotFoundError: remove references an id that is not waiting
//   - BatchValidationError: an add batch had a malformed entry; nothing was added
//
// All three match their sentinel (ErrOutOfRange, ErrNotFound,
// ErrBatchValidation) through errors.Is.
package queue
