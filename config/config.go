/*
config.go - Environment-driven application configuration

PURPOSE:
  Loads server and storage settings from the environment (with an optional
  .env file for local development). Everything has a sensible default so
  `go run ./cmd/server` works out of the box against a local SQLite file.

VARIABLES:
  PORT           HTTP listen port                 (default 8080)
  STORE_DRIVER   "sqlite" or "postgres"           (default sqlite)
  SQLITE_PATH    SQLite database file             (default payouts.db)
  DATABASE_URL   Postgres connection string       (required when postgres)
  LOG_LEVEL      slog level: debug|info|warn|error (default info)
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	LogLevel    slog.Level
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	cfg := &Config{
		Port:        port,
		StoreDriver: getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:  getEnv("SQLITE_PATH", "payouts.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the chosen store driver is usable.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want sqlite or postgres)", c.StoreDriver)
	}
	return nil
}

// Addr returns the listen address for http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
