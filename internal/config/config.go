// Package config reads catalog configuration from the environment,
// with typed accessors and documented defaults.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// GetEnvStr returns a string environment variable value or a default if not set.
func GetEnvStr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt returns an int environment variable value or a default if not set
// or unparsable.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetEnvDurationMS returns a millisecond-valued duration environment variable,
// or a default if not set or unparsable.
func GetEnvDurationMS(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultValue
}

// Config holds the environment-derived settings the CLI and HTTP wrappers
// pass down into the catalog core.
type Config struct {
	// CatalogPath is the URI of the catalog artifact: a local path, or
	// an s3:// / gs:// object URI.
	CatalogPath string
	// RetryAttempts bounds the concurrency controller's commit loop.
	RetryAttempts int
	// RetryBackoff is the base delay for randomized exponential backoff.
	RetryBackoff time.Duration
	// LogLevel controls the zap logger's verbosity ("debug", "info", "warn", "error").
	LogLevel string
	// HTTPAddr is the listen address for the HTTP surface.
	HTTPAddr string
}

// FromEnv builds a Config from the process environment.
func FromEnv() Config {
	return Config{
		CatalogPath:   GetEnvStr("CATALOG_PATH", "catalog.db"),
		RetryAttempts: GetEnvInt("CATALOG_RETRY_ATTEMPTS", 5),
		RetryBackoff:  GetEnvDurationMS("CATALOG_RETRY_BACKOFF_MS", 50*time.Millisecond),
		LogLevel:      GetEnvStr("CATALOG_LOG_LEVEL", "info"),
		HTTPAddr:      GetEnvStr("CATALOG_HTTP_ADDR", ":8080"),
	}
}

// FromFileOrEnv builds a Config the same way FromEnv does, but first
// layers in values from an optional YAML/TOML/JSON file (catalogctl's
// --config flag). viper's AutomaticEnv means a CATALOG_* environment
// variable still overrides whatever the file says, matching FromEnv's
// precedence.
func FromFileOrEnv(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("catalog")
	v.AutomaticEnv()
	v.SetDefault("path", "catalog.db")
	v.SetDefault("retry_attempts", 5)
	v.SetDefault("retry_backoff_ms", 50)
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	return Config{
		CatalogPath:   v.GetString("path"),
		RetryAttempts: v.GetInt("retry_attempts"),
		RetryBackoff:  time.Duration(v.GetInt("retry_backoff_ms")) * time.Millisecond,
		LogLevel:      v.GetString("log_level"),
		HTTPAddr:      v.GetString("http_addr"),
	}, nil
}
