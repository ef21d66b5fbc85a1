package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	"github.com/salesdw/salesdw/internal/storage"
	"github.com/salesdw/salesdw/migrations"
)

type (
	// MigrationRunner defines the interface for running database migrations.
	MigrationRunner interface {
		// Up applies all pending migrations
		Up() error

		// Down rollbacks the last migration
		Down() error

		// Status shows the current migration status
		Status() error

		// Version shows the current migration version
		Version() error

		// Drop drops all tables (destructive operation)
		Drop() error

		// Close closes any open connections
		Close() error
	}

	// migrationRunner implements MigrationRunner using golang-migrate.
	migrationRunner struct {
		config  *Config
		migrate *migrate.Migrate
		conn    *storage.Connection
		logger  *slog.Logger
		out     io.Writer
	}
)

// NewMigrationRunner connects to the warehouse and prepares golang-migrate.
// Status and version reports are written to out.
func NewMigrationRunner(config *Config, logger *slog.Logger, out io.Writer) (MigrationRunner, error) {
	logger.Info("Initializing migration runner", slog.String("config", config.String()))

	conn, err := storage.NewConnection(config.Storage)
	if err != nil {
		return nil, err
	}

	m, err := storage.NewMigrate(conn, config.MigrationTable, config.MigrationsPath, logger)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	logger.Info("Migration runner initialized", slog.String("source", config.Source()))

	return &migrationRunner{
		config:  config,
		migrate: m,
		conn:    conn,
		logger:  logger,
		out:     out,
	}, nil
}

// Up applies all pending migrations.
func (r *migrationRunner) Up() error {
	r.logger.Info("Starting migration up")

	err := r.migrate.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No new migrations to apply")
	} else {
		r.logger.Info("All migrations applied successfully")
	}

	return nil
}

// Down rollbacks the last migration.
func (r *migrationRunner) Down() error {
	r.logger.Info("Starting migration down")

	err := r.migrate.Steps(-1)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No migrations to rollback")
	} else {
		r.logger.Info("Last migration rolled back successfully")
	}

	return nil
}

// Status shows the current version and, for embedded migrations, how many are pending.
func (r *migrationRunner) Status() error {
	ver, dirty, err := r.migrate.Version()

	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		ver = 0
		_, _ = fmt.Fprintln(r.out, "Migration Status: No migrations applied yet")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		_, _ = fmt.Fprintf(r.out, "Migration Status: Version %d (dirty, needs manual intervention)\n", ver)
	default:
		_, _ = fmt.Fprintf(r.out, "Migration Status: Version %d (clean)\n", ver)
	}

	if r.config.MigrationsPath != "" {
		return nil
	}

	latest := migrations.NewSet(nil).MaxVersion()
	if pending := latest - int(ver); pending > 0 { //nolint:gosec // versions are small
		_, _ = fmt.Fprintf(r.out, "Pending: %d migration(s) up to version %d\n", pending, latest)
	} else {
		_, _ = fmt.Fprintln(r.out, "Pending: none")
	}

	return nil
}

// Version shows the current migration version.
func (r *migrationRunner) Version() error {
	ver, dirty, err := r.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			_, _ = fmt.Fprintln(r.out, "Current Version: No migrations applied")

			return nil
		}

		return fmt.Errorf("failed to get migration version: %w", err)
	}

	dirtyNote := ""
	if dirty {
		dirtyNote = " (dirty)"
	}

	_, _ = fmt.Fprintf(r.out, "Current Version: %d%s\n", ver, dirtyNote)

	return nil
}

// Drop drops all tables (destructive operation).
func (r *migrationRunner) Drop() error {
	r.logger.Warn("Dropping all tables")

	if err := r.migrate.Drop(); err != nil {
		return fmt.Errorf("drop operation failed: %w", err)
	}

	r.logger.Info("All tables dropped successfully")

	return nil
}

// Close closes the migrate instance and the database connection.
func (r *migrationRunner) Close() error {
	var errs []error

	if r.migrate != nil {
		sourceErr, dbErr := r.migrate.Close()
		if sourceErr != nil {
			errs = append(errs, fmt.Errorf("source close error: %w", sourceErr))
		}

		if dbErr != nil {
			errs = append(errs, fmt.Errorf("database close error: %w", dbErr))
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database connection close error: %w", err))
		}
	}

	return errors.Join(errs...)
}
