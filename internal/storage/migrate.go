package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source for MIGRATIONS_PATH
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/salesdw/salesdw/migrations"
)

// DefaultMigrationTable is the golang-migrate bookkeeping table.
const DefaultMigrationTable = "schema_migrations"

// migrateLogger routes golang-migrate output to slog.
type migrateLogger struct {
	logger *slog.Logger
}

var _ migrate.Logger = (*migrateLogger)(nil)

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "migrate"))
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

// NewMigrate returns a golang-migrate instance for the warehouse schema on conn.
//
// An empty path uses the migrations embedded in the binary; otherwise the .sql
// files are read from the directory at path. Closing the returned instance
// closes conn.
func NewMigrate(conn *Connection, table, path string, logger *slog.Logger) (*migrate.Migrate, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	if table == "" {
		table = DefaultMigrationTable
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{MigrationsTable: table})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	var m *migrate.Migrate

	if path == "" {
		if err := migrations.NewSet(nil).Validate(); err != nil {
			return nil, fmt.Errorf("embedded migrations are invalid: %w", err)
		}

		source, err := iofs.New(migrations.FS(), ".")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
		}

		m, err = migrate.NewWithInstance("iofs", source, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migrate instance: %w", err)
		}
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
		}

		m, err = migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migrate instance: %w", err)
		}
	}

	m.Log = &migrateLogger{logger: logger}

	return m, nil
}

// ApplyMigrations brings the warehouse schema at cfg up to date with the
// embedded migrations on a dedicated connection. Returns the resulting version.
func ApplyMigrations(cfg *Config, logger *slog.Logger) (uint, error) {
	conn, err := NewConnection(cfg)
	if err != nil {
		return 0, err
	}

	m, err := NewMigrate(conn, DefaultMigrationTable, "", logger)
	if err != nil {
		_ = conn.Close()

		return 0, err
	}

	defer func() {
		_, _ = m.Close()
		_ = conn.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}

	if dirty {
		return version, fmt.Errorf("migration version %d is dirty", version)
	}

	return version, nil
}
