// Package storage moves the star schema in and out of PostgreSQL: bulk loading
// of the transformed CSV tables and the analytical reports over them.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/salesdw/salesdw/internal/retry"
)

const healthCheckTimeout = 5 * time.Second

var (
	// ErrNoDatabaseConnection is returned when a store is built without a connection.
	ErrNoDatabaseConnection = errors.New("no database connection")
)

// Connection is a pooled PostgreSQL handle.
type Connection struct {
	*sql.DB
}

// NewConnection opens a pool for cfg and verifies it with a ping bounded by cfg.ConnectTimeout.
func NewConnection(cfg *Config) (*Connection, error) {
	if cfg == nil {
		return nil, ErrDatabaseURLEmpty
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.dataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.MaskDatabaseURL(), err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.MaskDatabaseURL(), err)
	}

	return &Connection{DB: db}, nil
}

// HealthCheck pings the database.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return ErrNoDatabaseConnection
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := c.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// isDatabaseConnectionError checks if an error indicates database connection failure.
// Uses PostgreSQL error codes (Class 08) and standard database/sql errors.
func isDatabaseConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

// retryOnConnectionError runs op under policy. Only connection failures are
// retried; any other error is returned at once.
func retryOnConnectionError(ctx context.Context, policy retry.Policy, logger *slog.Logger, op func() error) error {
	return retry.Do(ctx, policy, func() error {
		err := op()
		if err != nil && !isDatabaseConnectionError(err) {
			return retry.Permanent(err)
		}

		return err
	}, func(err error, wait time.Duration) {
		logger.Warn("Retrying after connection failure",
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
	})
}
