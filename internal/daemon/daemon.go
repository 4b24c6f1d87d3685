package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/setlist/internal/config"
	"github.com/five82/setlist/internal/csrf"
	"github.com/five82/setlist/internal/gateway"
	"github.com/five82/setlist/internal/logging"
	"github.com/five82/setlist/internal/media"
	"github.com/five82/setlist/internal/queue"
	"github.com/five82/setlist/internal/server"
	"github.com/five82/setlist/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Options configure the daemon. Empty fields fall back to the config file.
type Options struct {
	ConfigPath string
	Bind       string
	DataDir    string
	LogLevel   string
	Dev        bool

	// Logger overrides the stderr logger built from LogLevel.
	Logger *zap.Logger
	// Ready, when set, receives the bound address once the listener is up.
	Ready func(addr string)
}

// Run serves the queue API until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Bind != "" {
		cfg.Server.Bind = opts.Bind
	}
	if opts.DataDir != "" {
		dir, err := config.ExpandPath(opts.DataDir)
		if err != nil {
			return fmt.Errorf("expand data dir: %w", err)
		}
		cfg.Server.DataDir = dir
	}
	if opts.LogLevel != "" {
		cfg.Server.LogLevel = opts.LogLevel
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(cfg.Server.LogLevel, opts.Dev)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	db, err := storage.Open(cfg.Server.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	clk := clock.New()
	registry := queue.NewRegistry(clk)
	if err := db.Attach(ctx, registry, func(st queue.State, err error) {
		logger.Warn("persist queue failed",
			zap.String("context", st.Context),
			zap.Uint64("version", st.Version),
			zap.Error(err))
	}); err != nil {
		return fmt.Errorf("restore queues: %w", err)
	}
	restored := registry.Keys()

	sim := media.NewSimulator(registry, clk, logger.Named("media"), cfg.Server.TrackLength)
	hub := server.NewHub()
	hub.Attach(registry)
	issuer := csrf.NewIssuer(cfg.Server.TokenTTL, clk)

	gw, err := gateway.New(gateway.Options{
		Registry: registry,
		Tokens:   issuer,
		Media:    sim,
		Logger:   logger.Named("gateway"),
	})
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}
	srv := server.New(server.Options{
		Gateway:  gw,
		Registry: registry,
		Issuer:   issuer,
		Hub:      hub,
		Logger:   logger.Named("http"),
	})

	ln, err := net.Listen("tcp", cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Bind, err)
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("setlistd listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("db", db.Path()),
		zap.Strings("restored", restored))
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sim.Run(gctx)
	})
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("setlistd stopped")
	return err
}
