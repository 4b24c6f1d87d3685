package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the shared setlist configuration. The daemon reads Server, the
// dashboard reads Client.
type Config struct {
	Server Server
	Client Client
}

// Server holds [server] settings for setlistd.
type Server struct {
	Bind        string
	DataDir     string
	TokenTTL    time.Duration
	TrackLength time.Duration
	LogLevel    string
}

// Client holds [client] settings for the dashboard.
type Client struct {
	APIBind        string
	Context        string
	PollInterval   time.Duration
	SettleDelay    time.Duration
	RequestTimeout time.Duration
	LogFile        string
}

const (
	defaultConfigPath     = "~/.config/setlist/config.toml"
	defaultBind           = "127.0.0.1:7488"
	defaultDataDir        = "~/.local/share/setlist"
	defaultTokenTTL       = 12 * time.Hour
	defaultTrackLength    = 3 * time.Minute
	defaultLogLevel       = "info"
	defaultPollInterval   = 10 * time.Second
	defaultSettleDelay    = 500 * time.Millisecond
	defaultRequestTimeout = 5 * time.Second
	defaultLogFile        = "~/.local/state/setlist/dashboard.log"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: Server{
			Bind:        defaultBind,
			DataDir:     mustExpand(defaultDataDir),
			TokenTTL:    defaultTokenTTL,
			TrackLength: defaultTrackLength,
			LogLevel:    defaultLogLevel,
		},
		Client: Client{
			APIBind:        defaultBind,
			PollInterval:   defaultPollInterval,
			SettleDelay:    defaultSettleDelay,
			RequestTimeout: defaultRequestTimeout,
			LogFile:        mustExpand(defaultLogFile),
		},
	}
}

// Load locates and parses the setlist config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Server struct {
			Bind        string `toml:"bind"`
			DataDir     string `toml:"data_dir"`
			TokenTTL    string `toml:"token_ttl"`
			TrackLength string `toml:"track_length"`
			LogLevel    string `toml:"log_level"`
		} `toml:"server"`
		Client struct {
			APIBind        string `toml:"api_bind"`
			Context        string `toml:"context"`
			PollInterval   string `toml:"poll_interval"`
			SettleDelay    string `toml:"settle_delay"`
			RequestTimeout string `toml:"request_timeout"`
			LogFile        string `toml:"log_file"`
		} `toml:"client"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.Server.Bind); v != "" {
		cfg.Server.Bind = v
		// The dashboard follows the daemon unless told otherwise.
		cfg.Client.APIBind = v
	}
	if v := strings.TrimSpace(raw.Server.DataDir); v != "" {
		cfg.Server.DataDir = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.Server.LogLevel)); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := strings.TrimSpace(raw.Client.APIBind); v != "" {
		cfg.Client.APIBind = v
	}
	cfg.Client.Context = strings.TrimSpace(raw.Client.Context)
	if v := strings.TrimSpace(raw.Client.LogFile); v != "" {
		cfg.Client.LogFile = mustExpand(v)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"server.token_ttl", raw.Server.TokenTTL, &cfg.Server.TokenTTL},
		{"server.track_length", raw.Server.TrackLength, &cfg.Server.TrackLength},
		{"client.poll_interval", raw.Client.PollInterval, &cfg.Client.PollInterval},
		{"client.settle_delay", raw.Client.SettleDelay, &cfg.Client.SettleDelay},
		{"client.request_timeout", raw.Client.RequestTimeout, &cfg.Client.RequestTimeout},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.raw, d.dst); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func parseDuration(key, raw string, dst *time.Duration) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("parse config: %s must be positive", key)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
