// setlist is the terminal dashboard for a setlistd queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/five82/setlist/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	var opts app.Options
	flags := pflag.NewFlagSet("setlist", pflag.ContinueOnError)
	flags.StringVar(&opts.ConfigPath, "config", "", "config path (default ~/.config/setlist/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "prefs path (default ~/.config/setlist/prefs.toml)")
	flags.StringVarP(&opts.Context, "context", "c", "", "channel context to open, e.g. guild_channel")
	flags.StringVar(&opts.VoiceChannel, "voice", "", "voice channel used by join")
	flags.StringVar(&opts.APIBind, "api", "", "daemon address host:port (overrides config)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "dashboard log level")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "setlist: %v\n", err)
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "setlist: %v\n", err)
		return 1
	}
	return 0
}
