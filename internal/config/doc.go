// Package config loads the setlist TOML configuration shared by setlistd and
// the dashboard.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/setlist/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. Empty or whitespace-only fields also fall back to defaults
//
// # Layout
//
//	[server]
//	bind = "127.0.0.1:7488"
//	data_dir = "~/.local/share/setlist"
//	token_ttl = "12h"
//	track_length = "3m"
//	log_level = "info"
//
//	[client]
//	api_bind = "127.0.0.1:7488"   # defaults to server.bind
//	context = "guild_channel"
//	poll_interval = "10s"
//	settle_delay = "500ms"
//	request_timeout = "5s"
//	log_file = "~/.local/state/setlist/dashboard.log"
//
// Durations use Go duration syntax and must be positive. Paths accept a
// leading ~ and are returned absolute.
package config
