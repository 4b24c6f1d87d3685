// Package logtail reads the tail of the dashboard's JSON log file for the
// in-app log pane.
//
// Read keeps a ring buffer of the last maxLines non-empty lines, so large
// files are scanned once without being held in memory. Each line is decoded
// as a zap JSON record; anything else is passed through as raw text.
package logtail
