// Package pipeline holds the configuration shared by the ETL stages.
//
// Settings come from an optional YAML file (.salesdw.yaml, or the path in
// SALESDW_CONFIG_PATH) and are then overridden by environment variables.
// Database credentials are not part of this file; they are read from
// DATABASE_URL by the storage package.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/salesdw/salesdw/internal/config"
)

// DefaultConfigPath is the default location of the pipeline configuration file.
const DefaultConfigPath = ".salesdw.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "SALESDW_CONFIG_PATH"

const (
	defaultRawDir            = "data/raw"
	defaultProcessedDir      = "data/processed"
	defaultInsightsDir       = "data/insights"
	defaultBaseURL           = "https://fakestoreapi.com"
	defaultHTTPTimeout       = 30 * time.Second
	defaultRequestsPerSecond = 2.0
	defaultMaxAttempts       = 3
	defaultRetryBackoff      = 500 * time.Millisecond
	defaultTopProducts       = 5
	defaultLoadAttempts      = 3
	defaultLoadBackoff       = 2 * time.Second
	defaultNotifyTopic       = "salesdw.runs"
)

var (
	// ErrInvalidConfig is returned when the YAML file cannot be parsed or values are out of range.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")
)

type (
	// Config is the full pipeline configuration.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	Config struct {
		RawDir       string         `yaml:"raw_dir"`
		ProcessedDir string         `yaml:"processed_dir"`
		InsightsDir  string         `yaml:"insights_dir"`
		API          APIConfig      `yaml:"api"`
		Load         LoadConfig     `yaml:"load"`
		Insights     InsightsConfig `yaml:"insights"`
		Notify       NotifyConfig   `yaml:"notify"`
	}

	// APIConfig configures the store API ingestion client.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	APIConfig struct {
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		MaxAttempts       int           `yaml:"max_attempts"`
		RetryBackoff      time.Duration `yaml:"retry_backoff"`
	}

	// LoadConfig configures the warehouse loader.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	LoadConfig struct {
		MaxAttempts   int           `yaml:"max_attempts"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
		MigrateOnLoad bool          `yaml:"migrate_on_load"`
	}

	// InsightsConfig configures the analytical reports.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	InsightsConfig struct {
		TopProducts int `yaml:"top_products"`
	}

	// NotifyConfig configures run notifications. Empty Brokers disables them.
	NotifyConfig struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	}
)

// DefaultConfig returns the configuration used when no file or env var is set.
func DefaultConfig() *Config {
	return &Config{
		RawDir:       defaultRawDir,
		ProcessedDir: defaultProcessedDir,
		InsightsDir:  defaultInsightsDir,
		API: APIConfig{
			BaseURL:           defaultBaseURL,
			Timeout:           defaultHTTPTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			MaxAttempts:       defaultMaxAttempts,
			RetryBackoff:      defaultRetryBackoff,
		},
		Load: LoadConfig{
			MaxAttempts:  defaultLoadAttempts,
			RetryBackoff: defaultLoadBackoff,
		},
		Insights: InsightsConfig{
			TopProducts: defaultTopProducts,
		},
		Notify: NotifyConfig{
			Topic: defaultNotifyTopic,
		},
	}
}

// Load reads the YAML file at path on top of the defaults.
//
// A missing or empty file is not an error: the defaults apply. A file that
// exists but does not parse is an error, since running with guessed paths
// could overwrite the wrong directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Pipeline config file not found, using defaults", slog.String("path", path))

			return cfg, nil
		}

		return nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	}

	return cfg, nil
}

// LoadFromEnv loads the file named by SALESDW_CONFIG_PATH (default .salesdw.yaml),
// applies environment overrides and validates the result.
func LoadFromEnv() (*Config, error) {
	cfg, err := Load(config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath))
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides file values with any environment variables that are set.
func (c *Config) ApplyEnv() {
	c.RawDir = config.GetEnvStr("SALESDW_RAW_DIR", c.RawDir)
	c.ProcessedDir = config.GetEnvStr("SALESDW_PROCESSED_DIR", c.ProcessedDir)
	c.InsightsDir = config.GetEnvStr("SALESDW_INSIGHTS_DIR", c.InsightsDir)

	c.API.BaseURL = config.GetEnvStr("SALESDW_API_BASE_URL", c.API.BaseURL)
	c.API.Timeout = config.GetEnvDuration("SALESDW_HTTP_TIMEOUT", c.API.Timeout)
	c.API.RequestsPerSecond = config.GetEnvFloat("SALESDW_HTTP_RPS", c.API.RequestsPerSecond)
	c.API.MaxAttempts = config.GetEnvInt("SALESDW_HTTP_MAX_ATTEMPTS", c.API.MaxAttempts)
	c.API.RetryBackoff = config.GetEnvDuration("SALESDW_HTTP_RETRY_BACKOFF", c.API.RetryBackoff)

	c.Load.MaxAttempts = config.GetEnvInt("SALESDW_LOAD_MAX_ATTEMPTS", c.Load.MaxAttempts)
	c.Load.RetryBackoff = config.GetEnvDuration("SALESDW_LOAD_RETRY_BACKOFF", c.Load.RetryBackoff)
	c.Load.MigrateOnLoad = config.GetEnvBool("SALESDW_MIGRATE_ON_LOAD", c.Load.MigrateOnLoad)

	c.Insights.TopProducts = config.GetEnvInt("SALESDW_TOP_PRODUCTS", c.Insights.TopProducts)

	c.Notify.Brokers = config.GetEnvList("KAFKA_BROKERS", c.Notify.Brokers)
	c.Notify.Topic = config.GetEnvStr("KAFKA_TOPIC", c.Notify.Topic)
}

// Validate checks that directories are set and numeric settings are positive.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.RawDir) == "" {
		problems = append(problems, "raw_dir cannot be empty")
	}

	if strings.TrimSpace(c.ProcessedDir) == "" {
		problems = append(problems, "processed_dir cannot be empty")
	}

	if strings.TrimSpace(c.InsightsDir) == "" {
		problems = append(problems, "insights_dir cannot be empty")
	}

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		problems = append(problems, "api.base_url must be an http(s) URL")
	}

	if c.API.Timeout <= 0 {
		problems = append(problems, "api.timeout must be positive")
	}

	if c.API.RequestsPerSecond <= 0 {
		problems = append(problems, "api.requests_per_second must be positive")
	}

	if c.API.MaxAttempts < 1 {
		problems = append(problems, "api.max_attempts must be at least 1")
	}

	if c.Load.MaxAttempts < 1 {
		problems = append(problems, "load.max_attempts must be at least 1")
	}

	if c.Insights.TopProducts < 1 {
		problems = append(problems, "insights.top_products must be at least 1")
	}

	if len(c.Notify.Brokers) > 0 && c.Notify.Topic == "" {
		problems = append(problems, "notify.topic is required when brokers are set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}
