// Package config loads runtime configuration from CHRONICLE_* environment
// variables with sensible defaults, so both binaries run with zero setup.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Storage engine names accepted by CHRONICLE_STORAGE_ENGINE.
const (
	EngineJSON     = "json"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Web     WebConfig
}

// ServerConfig configures the HTTP listener of the web binary.
type ServerConfig struct {
	Host string
	Port int
}

// StorageConfig selects and configures the persistence engine.
type StorageConfig struct {
	// Engine is one of json, sqlite, postgres.
	Engine string

	// DataPath is the directory holding file-based state (json, sqlite).
	DataPath string

	// PostgresDSN is the lib/pq connection string for the postgres engine.
	PostgresDSN string
}

// WebConfig holds the knobs of the REST surface.
type WebConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load builds a Config from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("CHRONICLE_HOST", "127.0.0.1"),
			Port: getEnvInt("CHRONICLE_PORT", 7171),
		},
		Storage: StorageConfig{
			Engine:      getEnv("CHRONICLE_STORAGE_ENGINE", EngineJSON),
			DataPath:    getEnv("CHRONICLE_DATA_PATH", "./data"),
			PostgresDSN: getEnv("CHRONICLE_POSTGRES_DSN", ""),
		},
		Web: WebConfig{
			RateLimitPerSecond: getEnvFloat("CHRONICLE_RATE_LIMIT_RPS", 10),
			RateLimitBurst:     getEnvInt("CHRONICLE_RATE_LIMIT_BURST", 20),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Engine {
	case EngineJSON, EngineSQLite:
	case EnginePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("CHRONICLE_POSTGRES_DSN is required for the postgres engine")
		}
	default:
		return fmt.Errorf("unknown storage engine %q", c.Storage.Engine)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
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
