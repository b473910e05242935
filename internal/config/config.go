// Package config provides centralized configuration management for the analyzer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Parse    ParseConfig
	Server   ServerConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Store    StoreConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ParseConfig holds recovery engine settings shared by the CLI and the server.
type ParseConfig struct {
	// TopN is how many messages reports rank per table (default: 5)
	TopN int `env:"PARSE_TOP_N" envAlt:"TOP_N" default:"5"`

	// Workers is the number of goroutines building rows; 1 is sequential (default: 1)
	Workers int `env:"PARSE_WORKERS" default:"1"`

	// VocabularyFile is an optional YAML file overriding the built-in vocabulary
	VocabularyFile string `env:"PARSE_VOCABULARY_FILE"`

	// CanonicalMessages folds cosmetic message variants before ranking (default: false)
	CanonicalMessages bool `env:"PARSE_CANONICAL_MESSAGES" default:"false"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request, upload included (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// UploadConfig holds export upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed export size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of analyses running at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an upload waits for an analysis slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single analysis (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for the analyze endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// StoreConfig holds in-memory report retention settings.
type StoreConfig struct {
	// Capacity is how many analyses are kept before the oldest is evicted (default: 32)
	Capacity int `env:"STORE_CAPACITY" default:"32"`

	// TTL is how long an analysis stays available; 0 keeps it until evicted (default: 1h)
	TTL time.Duration `env:"STORE_TTL" default:"1h"`

	// SweepSchedule is the cron schedule for dropping expired analyses; empty disables it (default: @every 5m)
	SweepSchedule string `env:"STORE_SWEEP_SCHEDULE" default:"@every 5m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
