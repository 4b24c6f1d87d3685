package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Load("")
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if p.LastContext != "" {
		t.Fatalf("LastContext = %q, want empty", p.LastContext)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "setlist")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	body := "theme = \"Slate\"\nlast_context = \" guild_chan \"\n"
	if err := os.WriteFile(filepath.Join(prefsDir, "prefs.toml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p := Load("")
	if p.Theme != "Slate" || p.LastContext != "guild_chan" {
		t.Fatalf("prefs = %+v, want Slate/guild_chan", p)
	}
}

func TestLoad_GracefulDegradation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid toml", "theme = ["},
		{"empty theme", "theme = \"  \"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if p := Load(path); p.Theme != defaultTheme {
				t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
			}
		})
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Kanagawa", LastContext: "g_c"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded := Load(path)
	if loaded.Theme != "Kanagawa" || loaded.LastContext != "g_c" {
		t.Fatalf("loaded = %+v, want Kanagawa/g_c", loaded)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestWatch_ReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := Save(path, Prefs{Theme: "Slate"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Prefs, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(p Prefs) {
			select {
			case got <- p:
			default:
			}
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// The watcher registers asynchronously; keep saving until it notices.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case p := <-got:
			if p.Theme == "Kanagawa" {
				return
			}
		case <-tick.C:
			if err := Save(path, Prefs{Theme: "Kanagawa"}); err != nil {
				t.Fatalf("Save returned error: %v", err)
			}
		case <-deadline:
			t.Fatal("Watch did not report the updated prefs")
		}
	}
}
