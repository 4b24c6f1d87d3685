package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/client"
	"github.com/five82/setlist/internal/config"
	"github.com/five82/setlist/internal/logging"
	"github.com/five82/setlist/internal/poll"
	"github.com/five82/setlist/internal/prefs"
	"github.com/five82/setlist/internal/state"
	"github.com/five82/setlist/internal/ui"
)

// Options configure the dashboard.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/setlist/prefs.toml
	Context      string // channel context; empty falls back to config, then prefs
	VoiceChannel string
	APIBind      string // overrides [client] api_bind
	LogLevel     string
}

// Run boots the dashboard until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIBind != "" {
		cfg.Client.APIBind = opts.APIBind
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	level := opts.LogLevel
	if level == "" {
		level = cfg.Server.LogLevel
	}
	logger, err := logging.NewFile(cfg.Client.LogFile, level)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.NewClient(cfg.Client.APIBind, cfg.Client.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}

	key := firstNonEmpty(opts.Context, cfg.Client.Context, userPrefs.LastContext)
	logger.Info("dashboard starting",
		zap.String("api", c.BaseURL()),
		zap.String("context", key),
		zap.Duration("poll_interval", cfg.Client.PollInterval))

	clk := clock.New()
	notify := newNotifier()
	rec := state.NewReconciler(key, clk, notify.Notify)

	sched := poll.New(poll.Options{
		Fetcher: c,
		Context: rec.Context,
		Sink: func(snap api.Snapshot, err error) {
			if err != nil {
				rec.OnFetchFailed(err)
				return
			}
			rec.OnSnapshotReceived(snap)
		},
		Interval: cfg.Client.PollInterval,
		Settle:   cfg.Client.SettleDelay,
		Timeout:  cfg.Client.RequestTimeout,
		Clock:    clk,
		Logger:   logger.Named("poll"),
	})

	watcher := &watchLoop{
		watcher: c,
		rec:     rec,
		clock:   clk,
		logger:  logger.Named("watch"),
		backoff: baseBackoff,
		recheck: contextRecheck,
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		sched.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		return watcher.Run(runCtx)
	})

	uiOpts := ui.Options{
		Context:        runCtx,
		API:            c,
		Reconciler:     rec,
		Refresher:      sched,
		Logger:         logger.Named("ui"),
		ThemeName:      userPrefs.Theme,
		PrefsPath:      prefsPath,
		LogPath:        cfg.Client.LogFile,
		VoiceChannel:   opts.VoiceChannel,
		RequestTimeout: cfg.Client.RequestTimeout,
		PollInterval:   sched.Interval(),
	}
	uiErr := ui.Run(uiOpts, func(p *tea.Program) {
		g.Go(func() error {
			notify.Run(runCtx, p.Send)
			return nil
		})
		g.Go(func() error {
			err := prefs.Watch(runCtx, prefsPath, func(np prefs.Prefs) {
				p.Send(ui.PrefsChangedMsg(np))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("prefs watch stopped", zap.Error(err))
			}
			return nil
		})
	})

	cancel()
	if err := g.Wait(); err != nil && uiErr == nil {
		uiErr = err
	}
	logger.Info("dashboard stopped")
	return uiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
