package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-level configuration for the application.
// Strategy parameters live in internal/strategyconfig; this covers paths,
// logging and resource limits only.
type Config struct {
	Env string // development, production

	// Paths
	DataDir      string // cache, ledgers and RPS snapshots live here
	StrategyFile string // YAML strategy parameter file

	// Logging
	LogLevel  string
	LogFormat string // json or console

	// Fetching
	FetchWorkers   int           // bounded worker pool size per refresh cycle
	FetchTimeout   time.Duration // per-request HTTP timeout
	FetchRetries   int           // retry attempts for transient failures
	RequestsPerSec float64       // upstream rate limit

	// Persistence
	LockWait time.Duration // bounded wait for file lock acquisition
}

// Load reads configuration from environment variables, optionally seeded
// from a .env file. Only this function calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("HUNTER_ENV", "development"),

		DataDir:      getEnv("HUNTER_DATA_DIR", "data"),
		StrategyFile: getEnv("HUNTER_STRATEGY_FILE", "strategy.yaml"),

		LogLevel:  getEnv("HUNTER_LOG_LEVEL", "info"),
		LogFormat: getEnv("HUNTER_LOG_FORMAT", "console"),

		FetchWorkers:   getEnvInt("HUNTER_FETCH_WORKERS", 8),
		FetchTimeout:   getEnvDuration("HUNTER_FETCH_TIMEOUT", 10*time.Second),
		FetchRetries:   getEnvInt("HUNTER_FETCH_RETRIES", 3),
		RequestsPerSec: getEnvFloat("HUNTER_REQUESTS_PER_SEC", 5.0),

		LockWait: getEnvDuration("HUNTER_LOCK_WAIT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.FetchWorkers < 1 {
		return fmt.Errorf("config: fetch workers must be >= 1, got %d", c.FetchWorkers)
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("config: fetch retries must be >= 0, got %d", c.FetchRetries)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("config: lock wait must be positive, got %s", c.LockWait)
	}
	if c.RequestsPerSec <= 0 {
		return fmt.Errorf("config: requests per second must be positive, got %v", c.RequestsPerSec)
	}
	return nil
}

// CacheDir returns the directory holding per-symbol history files.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// RPSDir returns the directory holding daily RPS snapshots.
func (c *Config) RPSDir() string {
	return filepath.Join(c.DataDir, "rps")
}

// PositionsFile returns the open-position ledger path.
func (c *Config) PositionsFile() string {
	return filepath.Join(c.DataDir, "positions.json")
}

// TradesFile returns the append-only trade history path.
func (c *Config) TradesFile() string {
	return filepath.Join(c.DataDir, "trades.json")
}

// loadEnvFile tries common locations for a .env file. Missing files are
// fine; the environment may already be populated.
func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
