// Package config provides configuration management for the bookkeeping server.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	// DBPath is the SQLite database file for the ledger.
	DBPath string
	// AuditPath is the bbolt database file for the audit trail.
	AuditPath string
	// ChartPath is an optional YAML chart-of-accounts file used for seeding.
	// When empty the built-in default chart is used.
	ChartPath string
	// Port is the HTTP listen port.
	Port int
	// Debug enables debug-level logging.
	Debug bool
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	config := &Config{
		DBPath:    getEnvOrDefault("BOOKKEEPER_DB_PATH", "./data/bookkeeper.db"),
		AuditPath: getEnvOrDefault("BOOKKEEPER_AUDIT_PATH", "./data/audit.db"),
		ChartPath: os.Getenv("BOOKKEEPER_CHART_PATH"),
		Port:      port,
		Debug:     os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
