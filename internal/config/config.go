// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads service configuration from a YAML file, command-line
// flags, and the environment.
//
// Precedence, lowest to highest: flag defaults, config file, explicitly set
// flags. DATABASE_URL from the environment fills database.url when nothing
// else set it.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatehouse/gatehouse/internal/logging"
)

// Store backend names. The backend is selected once at startup; there is no
// per-request strategy branching.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the serve command configuration.
type Config struct {
	ListenAddr   string
	MetricsAddr  string
	DatabaseURL  string
	Store        string
	LogFormat    string
	RedactFields []string
	TLS          bool
}

// RegisterFlags declares the serve flags whose defaults seed the config.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listen-addr", "127.0.0.1:8080", "HTTP API listen address")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection string (or DATABASE_URL env)")
	fs.String("store", StorePostgres, "user store backend (postgres or memory)")
	fs.String("log-format", "json", "log format (json or text)")
	fs.StringSlice("redact-fields", logging.DefaultPIIFields, "log fields to redact")
	fs.Bool("tls", false, "serve the API over TLS with a locally managed certificate")
}

// flagKeys maps flag names onto config keys for the posflag provider.
var flagKeys = map[string]string{
	"listen-addr":   "listen.addr",
	"metrics-addr":  "metrics.addr",
	"database-url":  "database.url",
	"store":         "store.backend",
	"log-format":    "log.format",
	"redact-fields": "log.redact_fields",
	"tls":           "tls.enabled",
}

// Load merges the config file (optional) and flags into a validated Config.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// Explicitly set flags override the file; untouched flags only
	// contribute their defaults where the file is silent.
	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	cfg := Config{
		ListenAddr:   k.String("listen.addr"),
		MetricsAddr:  k.String("metrics.addr"),
		DatabaseURL:  k.String("database.url"),
		Store:        k.String("store.backend"),
		LogFormat:    k.String("log.format"),
		RedactFields: k.Strings("log.redact_fields"),
		TLS:          k.Bool("tls.enabled"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen.addr is required")
	}
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return oops.Code("CONFIG_INVALID").
			With("store", c.Store).
			Errorf("store.backend must be %q or %q", StorePostgres, StoreMemory)
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required for the postgres store")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log.format must be 'json' or 'text'")
	}
	return nil
}
