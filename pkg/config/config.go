// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"os"
	"strings"
)

// Config holds the server configuration
type Config struct {
	Port        string // HTTP listen port (e.g. ":8080")
	JWTSecret   string // shared secret for access token signatures
	RefreshSalt string // salt for refresh token hashing

	DatabaseURL string // Postgres URL for the record sink; empty selects SQLite
	SQLitePath  string // SQLite fallback path

	KafkaBrokers []string // broker bridge; empty disables mirroring
	KafkaTopic   string

	IdentityURL        string // identity provider base URL for profile lookups
	IdentityServiceKey string

	DebugLevel string // trace, debug, info, warn, error
}

// FromEnv loads configuration from environment variables with defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:               getEnv("PORT", ":8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		RefreshSalt:        getEnv("REFRESH_SALT", "cockroach-poker"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "data/cockroach.sqlite"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "cockroach.rooms"),
		IdentityURL:        os.Getenv("IDENTITY_URL"),
		IdentityServiceKey: os.Getenv("IDENTITY_SERVICE_KEY"),
		DebugLevel:         getEnv("DEBUG_LEVEL", "info"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must be set")
	}
	return cfg, nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
