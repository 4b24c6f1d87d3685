// Package server exposes the queue API over HTTP.
//
// # Routes
//
//	GET  /healthz
//	POST /api/session                          mint an anti-forgery session
//	GET  /api/contexts                         list known channel contexts
//	GET  /api/contexts/{context}/snapshot      read a snapshot (never creates a queue)
//	POST /api/contexts/{context}/mutations     the single mutation endpoint
//	GET  /api/contexts/{context}/watch         websocket stream of snapshots
//
// Mutations carry their token in the X-CSRF-Token header or, failing that,
// the csrf body field. Every mutation goes through gateway.Gateway; errors
// map to a status and a machine-readable code (bad_csrf, out_of_range,
// not_found, batch_invalid, media_failed, bad_request).
//
// # Watch Streams
//
// Hub fans committed snapshots out per context. Each watcher holds at most
// the newest snapshot and stale versions are never published.
package server
