package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/logsift/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional, defaults to ~/.config/logsift/config.toml)")
	refreshSeconds := flag.Int("refresh", 0, "re-fetch interval in seconds (optional, overrides refresh_seconds)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath}
	if refresh := *refreshSeconds; refresh > 0 {
		opts.RefreshEvery = refresh
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "logsift: %v\n", err)
		return 1
	}
	return 0
}
