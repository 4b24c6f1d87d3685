package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != defaultBind || cfg.Client.APIBind != defaultBind {
		t.Fatalf("binds = %q/%q, want %q", cfg.Server.Bind, cfg.Client.APIBind, defaultBind)
	}
	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.Server.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.Server.DataDir, wantDataDir)
	}
	if cfg.Client.PollInterval != 10*time.Second || cfg.Client.SettleDelay != 500*time.Millisecond {
		t.Fatalf("poll/settle = %v/%v, want 10s/500ms", cfg.Client.PollInterval, cfg.Client.SettleDelay)
	}
	if cfg.Server.TokenTTL != defaultTokenTTL || cfg.Server.LogLevel != "info" {
		t.Fatalf("ttl/level = %v/%q", cfg.Server.TokenTTL, cfg.Server.LogLevel)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
[server]
bind = "  0.0.0.0:9000  "
data_dir = "  ~/setlist-data  "
token_ttl = "1h"
track_length = "90s"
log_level = " DEBUG "

[client]
api_bind = "10.0.0.5:9000"
context = "  guild_chan  "
poll_interval = "15s"
settle_delay = "250ms"
request_timeout = "2s"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("Bind = %q, want %q", cfg.Server.Bind, "0.0.0.0:9000")
	}
	if cfg.Client.APIBind != "10.0.0.5:9000" {
		t.Fatalf("APIBind = %q, want %q", cfg.Client.APIBind, "10.0.0.5:9000")
	}
	if !strings.HasPrefix(cfg.Server.DataDir, home) {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.Server.DataDir, home)
	}
	if cfg.Server.TokenTTL != time.Hour || cfg.Server.TrackLength != 90*time.Second {
		t.Fatalf("ttl/track = %v/%v, want 1h/90s", cfg.Server.TokenTTL, cfg.Server.TrackLength)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Client.Context != "guild_chan" {
		t.Fatalf("Context = %q, want guild_chan", cfg.Client.Context)
	}
	if cfg.Client.PollInterval != 15*time.Second || cfg.Client.SettleDelay != 250*time.Millisecond || cfg.Client.RequestTimeout != 2*time.Second {
		t.Fatalf("client durations = %v/%v/%v", cfg.Client.PollInterval, cfg.Client.SettleDelay, cfg.Client.RequestTimeout)
	}
}

func TestLoad_ClientFollowsServerBind(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nbind = \"127.0.0.1:9100\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Client.APIBind != "127.0.0.1:9100" {
		t.Fatalf("APIBind = %q, want the server bind", cfg.Client.APIBind)
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad toml", `[server`, "parse config"},
		{"bad duration", "[client]\npoll_interval = \"soon\"\n", "client.poll_interval"},
		{"negative duration", "[server]\ntoken_ttl = \"-1h\"\n", "server.token_ttl must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load returned nil error, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
