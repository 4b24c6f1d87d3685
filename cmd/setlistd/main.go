// setlistd serves channel queues over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/five82/setlist/internal/daemon"
)

func main() {
	os.Exit(run())
}

func run() int {
	var opts daemon.Options
	flags := pflag.NewFlagSet("setlistd", pflag.ContinueOnError)
	flags.StringVar(&opts.ConfigPath, "config", "", "config path (default ~/.config/setlist/config.toml)")
	flags.StringVar(&opts.Bind, "bind", "", "listen address host:port (overrides config)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "queue database directory (overrides config)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&opts.Dev, "dev", false, "human-readable console logs")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "setlistd: %v\n", err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := daemon.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "setlistd: %v\n", err)
		return 1
	}
	return 0
}
