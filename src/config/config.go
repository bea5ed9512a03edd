package config

import (
	"fmt"
	"os"

	"volume-tracker/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults applied to zero-valued fields after load.
const (
	DefaultBackfillWorkers  = 10
	DefaultIndexWorkers     = 10
	DefaultSleepSeconds     = 5
	DefaultRetryWaitMinutes = 15
	DefaultLiveWorkers      = 6
	DefaultCacheSize        = 250
	DefaultMinCorrelationN  = 15
	DefaultRequestTimeout   = 20
	DefaultMaxRetries       = 3
	DefaultPushTimeout      = 5
	DefaultPageLimit        = 50000
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides validation
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if key := os.Getenv("PROVIDER_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if dsn := os.Getenv("DB_CONNECTION_STRING"); dsn != "" {
		c.Storage.DBConnectionString = dsn
	}

	if c.Provider.RequestTimeout == 0 {
		c.Provider.RequestTimeout = DefaultRequestTimeout
	}
	if c.Provider.PageLimit == 0 {
		c.Provider.PageLimit = DefaultPageLimit
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}
	if c.Push.Timeout == 0 {
		c.Push.Timeout = DefaultPushTimeout
	}
	if c.Backfill.Workers == 0 {
		c.Backfill.Workers = DefaultBackfillWorkers
	}
	if c.Backfill.IndexWorkers == 0 {
		c.Backfill.IndexWorkers = DefaultIndexWorkers
	}
	if c.Backfill.SleepSeconds == 0 {
		c.Backfill.SleepSeconds = DefaultSleepSeconds
	}
	if c.Backfill.RetryWaitMinutes == 0 {
		c.Backfill.RetryWaitMinutes = DefaultRetryWaitMinutes
	}
	if c.Live.Workers == 0 {
		c.Live.Workers = DefaultLiveWorkers
	}
	if c.Live.CacheSize == 0 {
		c.Live.CacheSize = DefaultCacheSize
	}
	if c.Live.MinCorrelationN == 0 {
		c.Live.MinCorrelationN = DefaultMinCorrelationN
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server configuration is only needed by cmd/server, but a bad value is
	// a config error either way
	if c.Port != 0 && (c.Port <= 1024 || c.Port > 65535) {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("db_connection_string cannot be empty for postgres")
		}
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("db_path cannot be empty for sqlite")
		}
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unknown database type: %s", c.Storage.DBType)
	}

	// Validate Provider configuration
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base_url cannot be empty")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate worker pools
	if c.Backfill.Workers <= 0 || c.Backfill.IndexWorkers <= 0 {
		return fmt.Errorf("backfill worker counts must be greater than 0")
	}
	if c.Live.Workers <= 0 {
		return fmt.Errorf("live worker count must be greater than 0")
	}
	if c.Live.CacheSize <= 0 {
		return fmt.Errorf("live cache size must be greater than 0")
	}

	return nil
}
