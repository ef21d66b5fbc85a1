package storage

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/salesdw/salesdw/internal/config"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
	defaultApplicationName = "salesdw"
)

var (
	// ErrDatabaseURLEmpty is returned when the database url is an empty string.
	ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

	// ErrInvalidPoolSize is returned when the pool settings cannot produce a usable pool.
	ErrInvalidPoolSize = errors.New("invalid connection pool size")
)

// Config holds PostgreSQL connection settings for the warehouse.
type Config struct {
	databaseURL     string
	ApplicationName string        // Reported to PostgreSQL as application_name
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of connections
	ConnMaxIdleTime time.Duration // Maximum idle time for connections
	ConnectTimeout  time.Duration // Bound on the initial ping in NewConnection
}

// LoadConfig loads PostgreSQL configuration from environment variables with fallback to defaults.
func LoadConfig() *Config {
	cfg := NewConfig(config.GetEnvStr("DATABASE_URL", ""))

	cfg.ApplicationName = config.GetEnvStr("DATABASE_APPLICATION_NAME", defaultApplicationName)
	cfg.MaxOpenConns = config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns)
	cfg.MaxIdleConns = config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns)
	cfg.ConnMaxLifetime = config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime)
	cfg.ConnMaxIdleTime = config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime)
	cfg.ConnectTimeout = config.GetEnvDuration("DATABASE_CONNECT_TIMEOUT", defaultConnectTimeout)

	return cfg
}

// NewConfig returns a Config for databaseURL with default pool settings.
func NewConfig(databaseURL string) *Config {
	return &Config{
		databaseURL:     databaseURL,
		ApplicationName: defaultApplicationName,
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
		ConnectTimeout:  defaultConnectTimeout,
	}
}

// Validate checks if the PostgreSQL configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	if c.MaxOpenConns < 1 || c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return ErrInvalidPoolSize
	}

	return nil
}

// dataSourceName returns the URL handed to lib/pq, adding application_name when
// the URL does not already carry one.
func (c *Config) dataSourceName() string {
	if c.ApplicationName == "" {
		return c.databaseURL
	}

	u, err := url.Parse(c.databaseURL)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return c.databaseURL
	}

	query := u.Query()
	if query.Get("application_name") != "" {
		return c.databaseURL
	}

	query.Set("application_name", c.ApplicationName)
	u.RawQuery = query.Encode()

	return u.String()
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	schemeEnd := strings.Index(c.databaseURL, "://")
	if schemeEnd == -1 {
		return c.databaseURL
	}

	// The last @ separates userinfo from host; passwords may contain @.
	afterScheme := c.databaseURL[schemeEnd+3:]

	at := strings.LastIndex(afterScheme, "@")
	if at == -1 {
		return c.databaseURL
	}

	username, password, found := strings.Cut(afterScheme[:at], ":")
	if !found || password == "" {
		return c.databaseURL
	}

	return c.databaseURL[:schemeEnd] + "://" + username + ":***" + afterScheme[at:]
}
