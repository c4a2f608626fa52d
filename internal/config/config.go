// Package config provides 12-factor configuration for the agentfs service.
// Everything is loaded from AGENTFS_-prefixed environment variables with
// sensible defaults.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Eviction EvictionConfig
	Logging  LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// BackendConfig selects and parameterizes the storage substrate.
// Kind is "store" or "disk"; turn-scoped state backends are constructed
// by the agent loop, not by the service.
type BackendConfig struct {
	Kind     string `envconfig:"BACKEND" default:"store"`
	DiskRoot string `envconfig:"DISK_ROOT" default:"/tmp/agentfs"`
}

// EvictionConfig holds the large-result eviction threshold.
type EvictionConfig struct {
	TokenLimit int `envconfig:"EVICT_TOKEN_LIMIT" default:"20000"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("agentfs", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8700", Host: "0.0.0.0"},
		Backend:  BackendConfig{Kind: "store", DiskRoot: "/tmp/agentfs"},
		Eviction: EvictionConfig{TokenLimit: 20000},
		Logging:  LogConfig{Level: "info", Development: false},
	}
}
