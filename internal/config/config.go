package config

import (
	"time"

	"github.com/labelens/labelens/internal/ailink"
)

// Config represents the complete application configuration, merged from
// built-in defaults, the user config file, environment variables, and
// runtime overrides (in that order).
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	AILink    ailink.Config   `mapstructure:"ailink"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Workers   int             `mapstructure:"workers"`

	// UpstreamLimits overrides per-provider outbound request budgets
	// (requests per minute). UpstreamMargin scales them down (0-1].
	UpstreamLimits map[string]int `mapstructure:"upstream_limits"`
	UpstreamMargin float64        `mapstructure:"upstream_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies; label photos should never need more.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ExtractConfig contains label extraction settings.
//
// Provider credentials and routing live under `ailink.*`.
type ExtractConfig struct {
	Role          string `mapstructure:"role"`
	DefaultPrompt string `mapstructure:"default_prompt"`
}

// RateLimitConfig contains per-client admission settings.
type RateLimitConfig struct {
	// MaxRequests allowed per client within Window.
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`

	// IdleTTL controls when untouched client windows are swept.
	IdleTTL time.Duration `mapstructure:"idle_ttl"`

	// ClientHeader names the header carrying the client id. When absent the
	// remote address is used instead.
	ClientHeader string `mapstructure:"client_header"`

	// TrustForwardedFor enables X-Forwarded-For as the remote address source.
	// Only enable behind a trusted proxy.
	TrustForwardedFor bool `mapstructure:"trust_forwarded_for"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles per Fulmen Forge Workhorse Standard:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
// - ENTERPRISE: Multiple sinks, middleware, throttling, policy enforcement (production)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
