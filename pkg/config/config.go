package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Data
	Data DataConfig

	// Database (optional ranking mirror)
	Database DatabaseConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DataConfig holds candle input and output defaults
type DataConfig struct {
	Dir          string
	Timeframe    string
	CandleType   string
	OutputFormat string
	// References is the reference instrument priority list (BTC first by default)
	References []string
	Workers    int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL    string
	Schema string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SchedulerConfig holds the retry policy for scheduled runs
type SchedulerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile("")
	return build()
}

// LoadFile is Load with an explicit .env path (the --config flag)
func LoadFile(path string) (*Config, error) {
	loadEnvFile(path)
	return build()
}

func build() (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Data: DataConfig{
			Dir:          getEnv("DATA_DIR", "user_data/data"),
			Timeframe:    getEnv("TIMEFRAME", "1h"),
			CandleType:   getEnv("CANDLE_TYPE", ""),
			OutputFormat: strings.ToLower(getEnv("OUTPUT_FORMAT", "feather")),
			References:   getEnvAsList("REFERENCE_INSTRUMENTS", []string{"BTC_USDT", "BTCUSDT", "BTC"}),
			Workers:      getEnvAsInt("LOADER_WORKERS", 4),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Schema:          getEnv("DB_SCHEMA", "metrex"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 4),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Scheduler: SchedulerConfig{
			MaxRetries: getEnvAsInt("SCHEDULER_MAX_RETRIES", 0),
			RetryDelay: getEnvAsDuration("SCHEDULER_RETRY_DELAY", "1m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// knownOutputFormats mirrors the writable codecs in internal/storage.
// pkg/config must not import internal packages, so the list is duplicated here.
var knownOutputFormats = map[string]bool{
	"feather": true,
	"arrow":   true,
	"parquet": true,
	"csv":     true,
	"xlsx":    true,
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Data.Workers <= 0 {
		return fmt.Errorf("LOADER_WORKERS must be positive, got %d", c.Data.Workers)
	}

	if !knownOutputFormats[c.Data.OutputFormat] {
		return fmt.Errorf("OUTPUT_FORMAT %q is not supported", c.Data.OutputFormat)
	}

	if len(c.Data.References) == 0 {
		return fmt.Errorf("REFERENCE_INSTRUMENTS must name at least one instrument")
	}

	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("SCHEDULER_MAX_RETRIES must not be negative")
	}

	return nil
}

// RequireDatabase checks the settings needed by commands that write to Postgres
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile(explicit string) {
	if explicit != "" {
		_ = godotenv.Load(explicit)
		return
	}

	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
