// Package daemon is the composition root of setlistd.
//
// Run loads configuration, restores persisted queues from SQLite, and
// serves the queue API. Every commit is persisted and fanned out to watch
// streams through registry commit hooks. The media simulator, HTTP server
// and shutdown watcher run in one errgroup; cancelling the context drains
// in-flight requests for up to five seconds.
package daemon
