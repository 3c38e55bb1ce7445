// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package config provides configuration loading and validation.
package config

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on.
	// Example: ":8080"
	ListenAddr string `toml:"listen_addr"`

	// Store selects and configures the persistence driver.
	Store StoreConfig `toml:"store"`

	// Session configures session lifetime.
	Session SessionConfig `toml:"session"`

	// Lifecycle configures the background sweep cadence.
	Lifecycle LifecycleConfig `toml:"lifecycle"`

	// CORS configures cross-origin access for browser clients.
	CORS CORSConfig `toml:"cors"`

	// Logging holds logging settings.
	Logging LoggingConfig `toml:"logging"`

	// Server holds server-specific settings.
	Server ServerConfig `toml:"server"`
}

// StoreConfig selects a persistence driver. Driver-specific settings live in
// the raw Options map and are decoded by the driver itself.
type StoreConfig struct {
	Driver  string         `toml:"driver"`
	Options map[string]any `toml:"options"`
}

// SessionConfig holds session settings.
type SessionConfig struct {
	// TTLHours is the session lifetime in hours.
	TTLHours int `toml:"ttl_hours"`
}

// LifecycleConfig holds background sweep settings.
type LifecycleConfig struct {
	// SweepIntervalSeconds is the cadence of the activate and close sweeps.
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `toml:"level"`
}

// ServerConfig holds server-specific settings.
type ServerConfig struct {
	// BootstrapHost seeds a host account on first start when the user
	// table is empty. All fields must be set to take effect.
	BootstrapHost BootstrapHost `toml:"bootstrap_host"`
}

// BootstrapHost holds bootstrap host account credentials.
type BootstrapHost struct {
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// Redacted returns a copy safe for logging: secrets are masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Server.BootstrapHost.Password != "" {
		out.Server.BootstrapHost.Password = "***"
	}
	return out
}
