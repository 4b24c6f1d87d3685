// Package client provides an HTTP client for the setlistd queue API.
//
// # Overview
//
// The dashboard reads snapshots, submits mutations and mints anti-forgery
// sessions through Client. Watch opens the optional websocket stream.
//
// # Error Handling
//
// Failures fall into three shapes:
//
//   - *TransientNetworkError: the daemon never answered (timeout, refused
//     connection, dropped socket). The poll scheduler reports these and keeps
//     going on its normal cadence.
//   - *APIError: the daemon answered with a non-2xx status. Code carries the
//     machine-readable reason (out_of_range, bad_csrf, ...).
//   - Everything else is wrapped with fmt.Errorf ("decode response: ...").
//
// # URL Construction
//
// NewClient accepts "127.0.0.1:7488" or a full "http://host:port" address.
// The scheme defaults to http and any path, query or fragment is dropped.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package client
