package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/salesdw/salesdw/internal/retry"
	"github.com/salesdw/salesdw/internal/tabular"
	"github.com/salesdw/salesdw/internal/warehouse"
)

const (
	defaultLoadAttempts = 3
	defaultLoadBackoff  = 2 * time.Second
)

var (
	// ErrUnknownTable is returned for table names outside the warehouse schema.
	ErrUnknownTable = errors.New("unknown warehouse table")

	// ErrLoadFailed wraps any failure while loading a table.
	ErrLoadFailed = errors.New("warehouse load failed")
)

type (
	// WarehouseLoader replaces the contents of warehouse tables with processed CSV files.
	//
	// Every load truncates the target and copies the file inside one transaction,
	// so a failed load leaves the previous contents in place.
	WarehouseLoader struct {
		conn   *Connection
		logger *slog.Logger
		policy retry.Policy
	}

	// LoaderOption configures optional WarehouseLoader behavior.
	LoaderOption func(*WarehouseLoader)
)

// WithLoadRetry sets how many times a load is attempted on connection failures
// and the initial backoff between attempts.
func WithLoadRetry(attempts int, backoff time.Duration) LoaderOption {
	return func(l *WarehouseLoader) {
		l.policy = retry.Policy{Attempts: attempts, Backoff: backoff}
	}
}

// WithLoaderLogger sets the logger. The default discards output.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *WarehouseLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewWarehouseLoader returns a loader bound to conn.
func NewWarehouseLoader(conn *Connection, opts ...LoaderOption) (*WarehouseLoader, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	loader := &WarehouseLoader{
		conn:   conn,
		logger: slog.New(slog.DiscardHandler),
		policy: retry.Policy{Attempts: defaultLoadAttempts, Backoff: defaultLoadBackoff},
	}

	for _, opt := range opts {
		opt(loader)
	}

	return loader, nil
}

// LoadTable replaces table with the rows of the CSV file at path.
// Returns the number of rows copied.
func (l *WarehouseLoader) LoadTable(ctx context.Context, table, path string) (int64, error) {
	if _, ok := warehouse.Columns(table); !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	var rows int64

	err := retryOnConnectionError(ctx, l.policy, l.logger, func() error {
		return l.inTx(ctx, func(tx *sql.Tx) error {
			if err := truncate(ctx, tx, table); err != nil {
				return err
			}

			n, err := copyFile(ctx, tx, table, path)
			rows = n

			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrLoadFailed, table, err)
	}

	l.logger.Info("Loaded table", slog.String("table", table), slog.Int64("rows", rows))

	return rows, nil
}

// LoadAll replaces all five warehouse tables with <dir>/<table>.csv in one
// transaction, dimensions before the fact table. Returns the rows copied per table.
func (l *WarehouseLoader) LoadAll(ctx context.Context, dir string) (map[string]int64, error) {
	order := warehouse.LoadOrder()

	// Fail on a missing file before touching the database.
	for _, table := range order {
		if _, err := os.Stat(csvPath(dir, table)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, table, err)
		}
	}

	var counts map[string]int64

	start := time.Now()

	err := retryOnConnectionError(ctx, l.policy, l.logger, func() error {
		counts = make(map[string]int64, len(order))

		return l.inTx(ctx, func(tx *sql.Tx) error {
			if err := truncate(ctx, tx, order...); err != nil {
				return err
			}

			for _, table := range order {
				n, err := copyFile(ctx, tx, table, csvPath(dir, table))
				if err != nil {
					return fmt.Errorf("%s: %w", table, err)
				}

				counts[table] = n
			}

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	attrs := make([]any, 0, len(order)+1)
	for _, table := range order {
		attrs = append(attrs, slog.Int64(table, counts[table]))
	}

	l.logger.Info("Loaded warehouse",
		slog.Group("rows", attrs...),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return counts, nil
}

func (l *WarehouseLoader) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			l.logger.Error("Failed to roll back load", slog.String("error", rbErr.Error()))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}

	return nil
}

func csvPath(dir, table string) string {
	return filepath.Join(dir, table+".csv")
}

// truncate empties tables. Names must already be checked against the schema.
func truncate(ctx context.Context, tx *sql.Tx, tables ...string) error {
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = pq.QuoteIdentifier(table)
	}

	query := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE"

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", strings.Join(tables, ", "), err)
	}

	return nil
}

func copyFile(ctx context.Context, tx *sql.Tx, table, path string) (int64, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the configured processed dir
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return copyRows(ctx, tx, table, f)
}

// copyRows streams CSV rows from r into table with COPY FROM STDIN.
func copyRows(ctx context.Context, tx *sql.Tx, table string, r io.Reader) (int64, error) {
	columns, ok := warehouse.Columns(table)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	reader, err := tabular.NewReader(r, table, columns)
	if err != nil {
		return 0, err
	}

	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = column.Name
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, names...))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	defer stmt.Close()

	var rows int64

	for {
		values, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return 0, err
		}

		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("failed to copy row %d into %s: %w", rows+1, table, err)
		}

		rows++
	}

	// The final Exec with no arguments flushes the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to finish copy into %s: %w", table, err)
	}

	return rows, nil
}
