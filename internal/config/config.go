// Package config loads and validates roost.yml, the daemon configuration.
// Unset tunables fall back to the coordination layer's documented defaults
// during validation, so a minimal file only needs a version line.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level roost.yml configuration.
type Config struct {
	Version  string          `yaml:"version"`
	Server   *ServerConfig   `yaml:"server,omitempty"`
	Presence *PresenceConfig `yaml:"presence,omitempty"`
	Oplog    *OplogConfig    `yaml:"oplog,omitempty"`
	Events   *EventsConfig   `yaml:"events,omitempty"`
}

// ServerConfig specifies the HTTP/websocket listen address.
type ServerConfig struct {
	Host  string `yaml:"host,omitempty"`
	Port  int    `yaml:"port,omitempty"`
	Debug bool   `yaml:"debug,omitempty"`
}

// PresenceConfig tunes agent liveness tracking.
type PresenceConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds,omitempty"` // Default: 30
	StaleTimeoutSeconds  int `yaml:"stale_timeout_seconds,omitempty"`  // Default: 120
}

// OplogConfig tunes the per-workspace operation log.
type OplogConfig struct {
	Retention        int `yaml:"retention,omitempty"`          // Ops kept per workspace, default: 1000
	CursorTTLSeconds int `yaml:"cursor_ttl_seconds,omitempty"` // Cursor liveness window, default: 60
}

// EventsConfig tunes the coordination event feed.
type EventsConfig struct {
	Retention int `yaml:"retention,omitempty"` // Feed entries kept, default: 512
}

// Validate performs strict validation and applies defaults in place.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Presence == nil {
		c.Presence = &PresenceConfig{}
	}
	if c.Presence.SweepIntervalSeconds == 0 {
		c.Presence.SweepIntervalSeconds = 30
	}
	if c.Presence.StaleTimeoutSeconds == 0 {
		c.Presence.StaleTimeoutSeconds = 120
	}
	if c.Presence.SweepIntervalSeconds < 0 || c.Presence.StaleTimeoutSeconds < 0 {
		return fmt.Errorf("presence intervals cannot be negative")
	}

	if c.Oplog == nil {
		c.Oplog = &OplogConfig{}
	}
	if c.Oplog.Retention == 0 {
		c.Oplog.Retention = 1000
	}
	if c.Oplog.CursorTTLSeconds == 0 {
		c.Oplog.CursorTTLSeconds = 60
	}
	if c.Oplog.Retention < 1 {
		return fmt.Errorf("oplog retention must be at least 1, got %d", c.Oplog.Retention)
	}
	if c.Oplog.CursorTTLSeconds < 1 {
		return fmt.Errorf("cursor TTL must be at least 1 second, got %d", c.Oplog.CursorTTLSeconds)
	}

	if c.Events == nil {
		c.Events = &EventsConfig{}
	}
	if c.Events.Retention == 0 {
		c.Events.Retention = 512
	}
	if c.Events.Retention < 1 {
		return fmt.Errorf("event retention must be at least 1, got %d", c.Events.Retention)
	}

	return nil
}

// ListenAddr returns the host:port the server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SweepInterval returns the presence sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Presence.SweepIntervalSeconds) * time.Second
}

// StaleTimeout returns the agent stale timeout as a duration.
func (c *Config) StaleTimeout() time.Duration {
	return time.Duration(c.Presence.StaleTimeoutSeconds) * time.Second
}

// CursorTTL returns the cursor liveness window as a duration.
func (c *Config) CursorTTL() time.Duration {
	return time.Duration(c.Oplog.CursorTTLSeconds) * time.Second
}

// Default returns a configuration with every field at its default value.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	// Validate never fails on a bare versioned config.
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, parses and validates a roost.yml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
