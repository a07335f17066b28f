package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/logsift/internal/config"
	"github.com/five82/logsift/internal/logging"
	"github.com/five82/logsift/internal/session"
	"github.com/five82/logsift/internal/source"
	"github.com/five82/logsift/internal/ui"
)

// Options configure the logsift application.
type Options struct {
	ConfigPath string
	// RefreshEvery overrides refresh_seconds when positive.
	RefreshEvery int
}

// Run boots the logsift TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger, closer, err := logging.Open(cfg.LogFile, level)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()

	src := newSource(cfg, logger)
	criteria := cfg.InitialCriteria(time.Now())
	controller := session.New(src, session.Options{
		Identifier: cfg.Identifier,
		Criteria:   &criteria,
		Logger:     logger,
	})

	interval := cfg.RefreshInterval
	if opts.RefreshEvery > 0 {
		interval = time.Duration(opts.RefreshEvery) * time.Second
	}

	logger.Info("logsift starting",
		"source", src.Describe(),
		"identifier", cfg.Identifier,
		"refresh", interval.String(),
	)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// Quitting the UI ends the refresher.
		defer stop()
		return ui.Run(gctx, ui.Options{
			Controller: controller,
			Config:     &cfg,
			SourceName: src.Describe(),
		})
	})
	g.Go(func() error {
		return Refresher{
			Fetcher:  controller,
			Interval: interval,
			Logger:   logging.WithCategory(logger, "refresh"),
		}.Run(gctx)
	})

	err = g.Wait()
	logger.Info("logsift stopped", "error", err)
	return err
}

// newSource builds the record source named by the config.
func newSource(cfg config.Config, logger *slog.Logger) session.Source {
	if cfg.Source == config.SourceFile {
		return source.File{
			Path:     cfg.File,
			MaxLines: cfg.MaxLines,
			Logger:   logging.WithCategory(logger, "source"),
		}
	}
	return source.Journal{}
}
