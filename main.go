package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carris2pg/pkg/config"
	"carris2pg/pkg/logging"
	"carris2pg/pkg/metrics"
	"carris2pg/pkg/pipeline"
	"carris2pg/pkg/profiling"
	"carris2pg/pkg/tracing"
)

func main() {
	logging.InitLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	once := flag.Bool("once", false, "run a single snapshot and exit")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "process a snapshot without writing to the database")
	interval := flag.Duration("interval", cfg.Interval, "poll interval between snapshots")
	flag.Parse()

	cfg.DryRun = *dryRun
	cfg.Interval = *interval

	shutdownTracing, err := tracing.InitTracing()
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	shutdownMetrics, err := metrics.InitMetrics()
	if err != nil {
		slog.Error("Failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer shutdownMetrics()

	shutdownProfiling, err := profiling.InitProfiling()
	if err != nil {
		slog.Error("Failed to initialize profiling", "error", err)
		os.Exit(1)
	}
	defer shutdownProfiling()

	p, err := pipeline.New(cfg)
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := p.RunOnce(runCtx); err != nil {
			slog.Error("Snapshot failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Pipeline terminated", "error", err)
		os.Exit(1)
	}
}
