// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ExchangeAPIURL string        // Base URL of the exchange REST API, including the version prefix
	ExchangeWSURL  string        // WebSocket URL of the exchange price stream
	SessionToken   string        // Bearer token for the exchange session
	DataDir        string        // Base directory for the local cache database (always absolute)
	LogLevel       string
	Port           int           // Local HTTP facade port
	RefreshMinutes int           // Periodic snapshot refresh interval, 0 disables
	DevMode        bool
	CachePath      string        // Derived: snapshot cache database path
	RefreshEvery   time.Duration // Derived from RefreshMinutes
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	cfg := &Config{
		ExchangeAPIURL: getEnv("EXCHANGE_API_URL", "http://localhost:8000/api/v1"),
		ExchangeWSURL:  getEnv("EXCHANGE_WS_URL", "ws://localhost:8000/api/v1/trading/ws"),
		SessionToken:   getEnv("EXCHANGE_SESSION_TOKEN", ""),
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("GO_PORT", 8001),
		RefreshMinutes: getEnvAsInt("REFRESH_INTERVAL_MINUTES", 5),
		DevMode:        getEnvAsBool("DEV_MODE", false),
	}

	cfg.CachePath = filepath.Join(absDataDir, "cache.db")
	cfg.RefreshEvery = time.Duration(cfg.RefreshMinutes) * time.Minute

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ExchangeAPIURL == "" {
		return fmt.Errorf("EXCHANGE_API_URL must not be empty")
	}
	if c.ExchangeWSURL == "" {
		return fmt.Errorf("EXCHANGE_WS_URL must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT %d out of range", c.Port)
	}
	if c.RefreshMinutes < 0 {
		return fmt.Errorf("REFRESH_INTERVAL_MINUTES must not be negative")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
