// Package main provides the insights stage: it runs the analytical reports
// over the loaded warehouse and writes each as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/salesdw/salesdw/internal/config"
	"github.com/salesdw/salesdw/internal/pipeline"
	"github.com/salesdw/salesdw/internal/storage"
	"github.com/salesdw/salesdw/internal/tabular"
)

// Version information.
const (
	version = "1.0.0-dev"
	name    = "insights"

	previewRows = 5
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		outDir      = flag.String("out", "", "insights output directory (overrides SALESDW_INSIGHTS_DIR)")
		top         = flag.Int("top", 0, "number of top selling products (overrides SALESDW_TOP_PRODUCTS)")
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
		cfg.InsightsDir = *outDir
	}

	if *top > 0 {
		cfg.Insights.TopProducts = *top
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	storageConfig := storage.LoadConfig()

	err = func() error {
		conn, err := storage.NewConnection(storageConfig)
		if err != nil {
			return err
		}

		defer func() {
			_ = conn.Close()
		}()

		_, err = run(ctx, cfg, conn, logger)

		return err
	}()

	stop()

	if err != nil {
		logger.Error("Insights failed",
			slog.String("database_url", storageConfig.MaskDatabaseURL()),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
}

// run queries the three reports and writes them to the insights directory.
// Returns the written paths.
func run(ctx context.Context, cfg *pipeline.Config, conn *storage.Connection, logger *slog.Logger) ([]string, error) {
	store, err := storage.NewInsightStore(conn)
	if err != nil {
		return nil, err
	}

	revenue, err := store.RevenuePerCategory(ctx)
	if err != nil {
		return nil, err
	}

	products, err := store.TopSellingProducts(ctx, cfg.Insights.TopProducts)
	if err != nil {
		return nil, err
	}

	trend, err := store.SalesTrend(ctx)
	if err != nil {
		return nil, err
	}

	tables := []*tabular.Table{
		storage.CategoryRevenueTable(revenue),
		storage.ProductSalesTable(products),
		storage.MonthlySalesTable(trend),
	}

	for _, table := range tables {
		preview(logger, table)
	}

	return tabular.NewWriter(cfg.InsightsDir, logger).WriteAll(tables...)
}

// preview logs the first rows of a report.
func preview(logger *slog.Logger, table *tabular.Table) {
	names := table.ColumnNames()

	for i, row := range table.Rows {
		if i == previewRows {
			break
		}

		attrs := make([]any, 0, len(names)+1)
		attrs = append(attrs, slog.String("report", table.Name))

		for j, value := range row {
			attrs = append(attrs, slog.Any(names[j], value))
		}

		logger.Info("Report row", attrs...)
	}
}
