package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{" DEBUG ", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFile_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dashboard.log")
	logger, err := NewFile(path, "info")
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("poll ok", zap.String("context", "g_c"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "hidden") {
		t.Fatalf("debug line written at info level: %s", body)
	}
	if !strings.Contains(body, `"msg":"poll ok"`) || !strings.Contains(body, `"context":"g_c"`) {
		t.Fatalf("log body = %s, want JSON line with msg and context", body)
	}
}

func TestNew_RejectsBadLevel(t *testing.T) {
	if _, err := New("shouting", false); err == nil {
		t.Fatal("New returned nil error for bad level")
	}
}
