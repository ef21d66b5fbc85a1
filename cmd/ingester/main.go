// Package main provides the ingestion stage: it pulls categories, products,
// users and carts from the store API into the raw directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesdw/salesdw/internal/config"
	"github.com/salesdw/salesdw/internal/ingestion"
	"github.com/salesdw/salesdw/internal/pipeline"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "ingester"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		outDir      = flag.String("out", "", "raw output directory (overrides SALESDW_RAW_DIR)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	logger := config.NewLogger()

	cfg, err := pipeline.LoadFromEnv()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *outDir != "" {
		cfg.RawDir = *outDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Ingestion failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

func run(ctx context.Context, cfg *pipeline.Config, logger *slog.Logger) error {
	start := time.Now()

	logger.Info("Starting ingestion",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("base_url", cfg.API.BaseURL),
		slog.String("raw_dir", cfg.RawDir),
		slog.Float64("requests_per_second", cfg.API.RequestsPerSecond),
		slog.Int("max_attempts", cfg.API.MaxAttempts),
	)

	client, err := ingestion.NewClient(cfg.API.BaseURL,
		ingestion.WithTimeout(cfg.API.Timeout),
		ingestion.WithRateLimit(cfg.API.RequestsPerSecond, 1),
		ingestion.WithRetry(cfg.API.MaxAttempts, cfg.API.RetryBackoff),
		ingestion.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	results, err := client.Ingest(ctx, cfg.RawDir)
	if err != nil {
		return err
	}

	records := make([]any, 0, len(results))
	for _, result := range results {
		records = append(records, slog.Int(result.Collection, result.Records))
	}

	logger.Info("Ingestion complete",
		slog.Group("records", records...),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
