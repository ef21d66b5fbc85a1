package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/salesdw/salesdw/internal/config"
	"github.com/salesdw/salesdw/internal/storage"
)

var (
	// ErrMigrationTableEmpty is returned when MIGRATION_TABLE is set to an empty name.
	ErrMigrationTableEmpty = errors.New("MIGRATION_TABLE cannot be empty")

	// ErrMigrationsPathMissing is returned when MIGRATIONS_PATH points nowhere.
	ErrMigrationsPathMissing = errors.New("migrations directory does not exist")
)

// Config holds all configuration for the migration tool.
type Config struct {
	// Storage holds the warehouse connection settings (DATABASE_URL and pool).
	Storage *storage.Config

	// MigrationsPath is a directory of .sql files. Empty means the embedded migrations.
	MigrationsPath string

	// MigrationTable is the name of the table that tracks applied migrations.
	MigrationTable string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Storage:        storage.LoadConfig(),
		MigrationsPath: config.GetEnvStr("MIGRATIONS_PATH", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", storage.DefaultMigrationTable),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and resolves MigrationsPath to an absolute path.
func (c *Config) Validate() error {
	if c.Storage == nil {
		return storage.ErrDatabaseURLEmpty
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if c.MigrationTable == "" {
		return ErrMigrationTableEmpty
	}

	if c.MigrationsPath == "" {
		return nil
	}

	absPath, err := filepath.Abs(c.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrMigrationsPathMissing, absPath)
	}

	c.MigrationsPath = absPath

	return nil
}

// Source describes where migrations are read from.
func (c *Config) Source() string {
	if c.MigrationsPath == "" {
		return "embedded"
	}

	return c.MigrationsPath
}

// String returns a string representation of the configuration (safe for logging).
func (c *Config) String() string {
	masked := ""
	if c.Storage != nil {
		masked = c.Storage.MaskDatabaseURL()
	}

	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationsSource: %s, MigrationTable: %s}",
		masked, c.Source(), c.MigrationTable)
}
