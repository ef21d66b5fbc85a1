// Package main provides the transformation stage: it turns the raw snapshot
// into the five star-schema CSV tables.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/salesdw/salesdw/internal/config"
	"github.com/salesdw/salesdw/internal/pipeline"
	"github.com/salesdw/salesdw/internal/raw"
	"github.com/salesdw/salesdw/internal/tabular"
	"github.com/salesdw/salesdw/internal/warehouse"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "transformer"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		inDir       = flag.String("in", "", "raw input directory (overrides SALESDW_RAW_DIR)")
		outDir      = flag.String("out", "", "processed output directory (overrides SALESDW_PROCESSED_DIR)")
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
		cfg.RawDir = *inDir
	}

	if *outDir != "" {
		cfg.ProcessedDir = *outDir
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Transformation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *pipeline.Config, logger *slog.Logger) error {
	start := time.Now()

	logger.Info("Starting transformation",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("raw_dir", cfg.RawDir),
		slog.String("processed_dir", cfg.ProcessedDir),
	)

	collections, err := raw.LoadCollections(cfg.RawDir)
	if err != nil {
		return err
	}

	snapshot, err := warehouse.Transform(collections)
	if err != nil {
		return err
	}

	if _, err := tabular.NewWriter(cfg.ProcessedDir, logger).WriteAll(snapshot.Tables()...); err != nil {
		return err
	}

	counts := snapshot.RowCounts()

	rows := make([]any, 0, len(counts))
	for _, table := range warehouse.LoadOrder() {
		rows = append(rows, slog.Int(table, counts[table]))
	}

	logger.Info("Transformation complete",
		slog.Group("rows", rows...),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
