package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyvo/iobuilds/pkg/config"
	"github.com/vyvo/iobuilds/pkg/rapyuta"
	"github.com/vyvo/iobuilds/pkg/telemetry"
	"github.com/vyvo/iobuilds/pkg/workflow"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAction()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("io-builds failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// run submits every build in the manifest and waits for all of them.
func run(ctx context.Context, cfg config.ActionConfig, logger *slog.Logger) error {
	var traceOut io.Writer
	if cfg.Trace {
		traceOut = os.Stderr
	}
	shutdown := telemetry.InitTracer(ctx, "io-builds", traceOut)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	client := rapyuta.NewClient(cfg.CoreAPIURL, cfg.CatalogAPIURL, cfg.AuthToken)
	builds, err := workflow.NewRunner(cfg, client, logger).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("all builds complete", "builds", len(builds))
	return nil
}
