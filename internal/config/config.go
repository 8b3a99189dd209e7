package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Gemini configuration
	GeminiAPIKey string

	// HTTP server
	ServerAddr string

	// Storage
	StorageType string // "memory" or "sqlite"
	SQLitePath  string // ":memory:" keeps the ledger session-scoped

	// Play archive
	ElasticsearchURL string // empty disables the Elasticsearch play log

	// Match settings
	Theme           string
	QuarterLength   string // mm:ss clock at the start of each quarter
	StartingBalance int64
	ReplayPollEvery time.Duration
	ReplayMaxPolls  int

	// Environment
	Environment string // "development" or "production"
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ServerAddr:       getEnvWithDefault("SERVER_ADDR", ":8080"),
		StorageType:      getEnvWithDefault("STORAGE_TYPE", "memory"),
		SQLitePath:       getEnvWithDefault("SQLITE_PATH", ":memory:"),
		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),
		Theme:            getEnvWithDefault("MATCH_THEME", "Cyberpunk Robot Basketball"),
		QuarterLength:    getEnvWithDefault("QUARTER_LENGTH", "15:00"),
		StartingBalance:  getEnvInt64WithDefault("STARTING_BALANCE", 1000),
		ReplayPollEvery:  getEnvDurationWithDefault("REPLAY_POLL_EVERY", 5*time.Second),
		ReplayMaxPolls:   int(getEnvInt64WithDefault("REPLAY_MAX_POLLS", 60)),
		Environment:      getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if c.ReplayMaxPolls <= 0 {
		return fmt.Errorf("REPLAY_MAX_POLLS must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
