// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package config loads service configuration from a YAML file, the
// environment, and command-line flags, in that order of precedence
// (later sources win).
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the runtime configuration for the service.
type Config struct {
	// Listen is the address the HTTP API binds to.
	Listen string `koanf:"listen"`
	// MetricsListen is the address the observability server binds to.
	// Empty disables it.
	MetricsListen string `koanf:"metrics_listen"`
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`
	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`
	// AutoMigrate applies pending schema migrations on startup.
	AutoMigrate bool `koanf:"auto_migrate"`
	// ExcludedPaths are request paths served without authentication,
	// in addition to the built-in defaults.
	ExcludedPaths []string `koanf:"excluded_paths"`
}

// Default returns the configuration used when no file, environment, or
// flags override it.
func Default() Config {
	return Config{
		Listen:        ":5000",
		MetricsListen: ":9090",
		LogFormat:     "json",
		AutoMigrate:   true,
	}
}

// Load builds the effective configuration. The file at path is
// optional unless explicit is true. flags may be nil. DATABASE_URL
// from the environment sits between the file and the flags.
func Load(path string, explicit bool, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, oops.Code("CONFIG_FILE_UNREADABLE").
					With("path", path).
					Wrap(err)
			}
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := k.Set("database_url", dbURL); err != nil {
			return Config{}, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores. Passing k
		// lets unchanged flags defer to file and env values.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen address must not be empty")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log format must be json or text, got %q", c.LogFormat)
	}
	return nil
}
