// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, populated from CALBRIDGE_*
// environment variables.
type Config struct {
	// Addr is the listen address for the JSON-RPC server.
	Addr string `envconfig:"ADDR" default:":8080"`

	// MetricsAddr is the listen address for the Prometheus metrics
	// server.
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	// DBPath is the sqlite database path. ":memory:" runs without
	// persistence.
	DBPath string `envconfig:"DB_PATH" default:"calbridge.db"`

	// JWTSecret is the HMAC secret verifying caller tokens. Required.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFormat is "json" or "text".
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("calbridge", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for the serve command.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("CALBRIDGE_JWT_SECRET is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log format %q, must be json or text", c.LogFormat)
	}
	return nil
}
