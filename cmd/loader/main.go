// Package main provides the load stage: it replaces the warehouse tables in
// PostgreSQL with the processed CSV files and announces the run.
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
	"github.com/salesdw/salesdw/internal/notify"
	"github.com/salesdw/salesdw/internal/pipeline"
	"github.com/salesdw/salesdw/internal/storage"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "loader"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		migrateFlag = flag.Bool("migrate", false, "apply pending schema migrations before loading")
		inDir       = flag.String("in", "", "processed input directory (overrides SALESDW_PROCESSED_DIR)")
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

	if *inDir != "" {
		cfg.ProcessedDir = *inDir
	}

	if *migrateFlag {
		cfg.Load.MigrateOnLoad = true
	}

	publisher, err := notify.New(cfg.Notify.Brokers, cfg.Notify.Topic, logger)
	if err != nil {
		logger.Error("Failed to create run publisher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = run(ctx, cfg, storage.LoadConfig(), publisher, logger)

	stop()

	if closeErr := publisher.Close(); closeErr != nil {
		logger.Warn("Failed to close run publisher", slog.String("error", closeErr.Error()))
	}

	if err != nil {
		logger.Error("Load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg *pipeline.Config,
	storageConfig *storage.Config,
	publisher notify.Publisher,
	logger *slog.Logger,
) error {
	start := time.Now()

	logger.Info("Starting load",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("processed_dir", cfg.ProcessedDir),
		slog.String("database_url", storageConfig.MaskDatabaseURL()),
		slog.Bool("migrate", cfg.Load.MigrateOnLoad),
		slog.Bool("notify", len(cfg.Notify.Brokers) > 0),
	)

	if cfg.Load.MigrateOnLoad {
		schemaVersion, err := storage.ApplyMigrations(storageConfig, logger)
		if err != nil {
			return err
		}

		logger.Info("Warehouse schema is up to date", slog.Uint64("schema_version", uint64(schemaVersion)))
	}

	conn, err := storage.NewConnection(storageConfig)
	if err != nil {
		return err
	}

	defer func() {
		_ = conn.Close()
	}()

	loader, err := storage.NewWarehouseLoader(conn,
		storage.WithLoadRetry(cfg.Load.MaxAttempts, cfg.Load.RetryBackoff),
		storage.WithLoaderLogger(logger),
	)
	if err != nil {
		return err
	}

	counts, err := loader.LoadAll(ctx, cfg.ProcessedDir)
	if err != nil {
		return err
	}

	// The warehouse is already committed; a failed notification is reported but does not fail the run.
	event := notify.NewRunCompleted(name, counts)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish run event",
			slog.String("run_id", event.RunID.String()),
			slog.String("error", err.Error()),
		)
	}

	logger.Info("Load complete",
		slog.String("run_id", event.RunID.String()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
