// Package config provides environment-driven configuration for tasktrail.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported STORE_BACKEND values.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	StoreBackend string
	DatabaseURL  Secret
	SQLitePath   string
	DBMaxConns   int32
	TxTimeout    time.Duration
	Port         string
	ListenHost   string
	CORSOrigins  []string
	LogLevel     string
	LogFormat    string
	JWTSecret    Secret
	JWTIssuer    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreBackend: strings.ToLower(envOrDefault("STORE_BACKEND", BackendSQLite)),
		DatabaseURL:  Secret(envOrDefault("DATABASE_URL", "")),
		SQLitePath:   envOrDefault("SQLITE_PATH", "tasks.db"),
		Port:         envOrDefault("PORT", "3030"),
		ListenHost:   envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "text"),
		JWTSecret:    Secret(envOrDefault("JWT_SECRET_KEY", "")),
		JWTIssuer:    envOrDefault("JWT_ISSUER", "tasktrail"),
	}

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "20"))
	if err != nil || maxConns < 1 || maxConns > 500 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 1 and 500")
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // bounded above.

	txTimeout, err := time.ParseDuration(envOrDefault("TX_TIMEOUT", "5s"))
	if err != nil || txTimeout <= 0 {
		return nil, fmt.Errorf("TX_TIMEOUT must be a positive duration such as 5s")
	}
	cfg.TxTimeout = txTimeout

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
