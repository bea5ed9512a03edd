package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Storage  MStorageConfig  `yaml:"storage"`
	Provider MProviderConfig `yaml:"provider"`
	Push     MPushConfig     `yaml:"push"`
	Backfill MBackfillConfig `yaml:"backfill"`
	Live     MLiveConfig     `yaml:"live"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // "postgres" or "sqlite"
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"` // Optional, PROVIDER_API_KEY env wins
	RequestTimeout int    `yaml:"timeout"` // seconds
	MaxRetries     int    `yaml:"retries"`
	PageLimit      int    `yaml:"page_limit"` // max ticks per request page
}

type MPushConfig struct {
	URL     string `yaml:"url"` // hub publish endpoint, e.g. http://localhost:8081/pub
	Timeout int    `yaml:"timeout"`
}

type MBackfillConfig struct {
	Workers          int `yaml:"workers"`
	IndexWorkers     int `yaml:"index_workers"`
	SleepSeconds     int `yaml:"sleep_seconds"`
	RetryWaitMinutes int `yaml:"retry_wait_minutes"`
}

type MLiveConfig struct {
	Workers         int `yaml:"workers"`
	CacheSize       int `yaml:"cache_size"`
	MinCorrelationN int `yaml:"min_correlation_points"`
}
