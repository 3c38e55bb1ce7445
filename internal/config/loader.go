// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr   *string
	StoreDriver  *string
	LoggingLevel *string
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	ListenAddr string `toml:"listen_addr"`

	Store     *StoreConfig     `toml:"store"`
	Session   *SessionConfig   `toml:"session"`
	Lifecycle *LifecycleConfig `toml:"lifecycle"`
	CORS      *CORSConfig      `toml:"cors"`
	Logging   *LoggingConfig   `toml:"logging"`
	Server    *serverConfig    `toml:"server"`
}

// serverConfig holds server-specific settings in TOML.
type serverConfig struct {
	BootstrapHost *BootstrapHost `toml:"bootstrap_host"`
}

// Load loads configuration with the following precedence:
//  1. Start from defaults
//  2. Overlay TOML config file values
//  3. Overlay CLI flags
//  4. Validate
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown TOML keys produce a
// warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	cfg := Default()

	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}

	overlayFlags(cfg, opts.FlagOverrides)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the base configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		Store: StoreConfig{
			Driver: "memory",
		},
		Session: SessionConfig{
			TTLHours: 24,
		},
		Lifecycle: LifecycleConfig{
			SweepIntervalSeconds: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if len(fc.Store.Options) > 0 {
			cfg.Store.Options = fc.Store.Options
		}
	}

	if fc.Session != nil && fc.Session.TTLHours != 0 {
		cfg.Session.TTLHours = fc.Session.TTLHours
	}

	if fc.Lifecycle != nil && fc.Lifecycle.SweepIntervalSeconds != 0 {
		cfg.Lifecycle.SweepIntervalSeconds = fc.Lifecycle.SweepIntervalSeconds
	}

	if fc.CORS != nil && len(fc.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = fc.CORS.AllowedOrigins
	}

	if fc.Logging != nil && fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}

	if fc.Server != nil && fc.Server.BootstrapHost != nil {
		cfg.Server.BootstrapHost = *fc.Server.BootstrapHost
	}
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.LoggingLevel != nil && *f.LoggingLevel != "" {
		cfg.Logging.Level = *f.LoggingLevel
	}
}

// validate checks enum-like config fields and returns an error for invalid values.
func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}

	if cfg.Store.Driver == "" {
		return fmt.Errorf("store.driver must not be empty")
	}

	if cfg.Session.TTLHours < 1 {
		return fmt.Errorf("invalid session.ttl_hours %d: must be at least 1", cfg.Session.TTLHours)
	}

	if cfg.Lifecycle.SweepIntervalSeconds < 1 {
		return fmt.Errorf("invalid lifecycle.sweep_interval_seconds %d: must be at least 1", cfg.Lifecycle.SweepIntervalSeconds)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", cfg.Logging.Level)
	}

	bh := cfg.Server.BootstrapHost
	if (bh.Email != "" || bh.Password != "") && (bh.Email == "" || bh.Password == "" || bh.Name == "") {
		return fmt.Errorf("server.bootstrap_host requires name, email, and password to all be set")
	}

	return nil
}
