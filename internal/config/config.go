// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads phoneauth configuration from defaults, a YAML file,
// and command-line flags, in that order of precedence. A few settings fall
// back to environment variables when still unset.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/internal/logging"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the complete phoneauth configuration.
type Config struct {
	Store    string         `koanf:"store" yaml:"store" jsonschema:"enum=memory,enum=postgres,description=Account and session storage backend"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
	Phone    PhoneConfig    `koanf:"phone" yaml:"phone"`
	Sessions SessionsConfig `koanf:"sessions" yaml:"sessions"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string   `koanf:"url" yaml:"url" jsonschema:"description=PostgreSQL connection URL"`
	ConnectAttempts int      `koanf:"connect_attempts" yaml:"connect_attempts" jsonschema:"minimum=1"`
	ConnectBackoff  Duration `koanf:"connect_backoff" yaml:"connect_backoff"`
	AutoMigrate     bool     `koanf:"auto_migrate" yaml:"auto_migrate" jsonschema:"description=Apply pending migrations on startup"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `koanf:"format" yaml:"format" jsonschema:"enum=json,enum=text"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr" jsonschema:"description=Listen address for /metrics and health probes; empty disables"`
}

// AuthConfig mirrors auth.Options.
type AuthConfig struct {
	HashCost        int      `koanf:"hash_cost" yaml:"hash_cost" jsonschema:"minimum=4,maximum=31"`
	WaitTime        Duration `koanf:"wait_time" yaml:"wait_time"`
	MaxRetries      int      `koanf:"max_retries" yaml:"max_retries" jsonschema:"minimum=0"`
	RetriesWaitTime Duration `koanf:"retries_wait_time" yaml:"retries_wait_time"`
	CodeLength      int      `koanf:"code_length" yaml:"code_length" jsonschema:"minimum=1,maximum=12"`
	MasterCode      string   `koanf:"master_code" yaml:"master_code" jsonschema:"description=Code accepted for any pending verification; empty disables"`
	SessionTTL      Duration `koanf:"session_ttl" yaml:"session_ttl"`
}

// PhoneConfig configures phone normalization.
type PhoneConfig struct {
	DefaultRegion string   `koanf:"default_region" yaml:"default_region" jsonschema:"description=ISO 3166-1 region for numbers without a country code"`
	AdminNumbers  []string `koanf:"admin_numbers" yaml:"admin_numbers" jsonschema:"description=Glob patterns of privileged phone numbers"`
}

// SessionsConfig configures background session maintenance.
type SessionsConfig struct {
	SweepInterval Duration `koanf:"sweep_interval" yaml:"sweep_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	opts := auth.DefaultOptions()
	return &Config{
		Store: StoreMemory,
		Database: DatabaseConfig{
			ConnectAttempts: 5,
			ConnectBackoff:  Duration(time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9101",
		},
		Auth: AuthConfig{
			HashCost:        opts.HashCost,
			WaitTime:        Duration(opts.WaitTime),
			MaxRetries:      opts.MaxRetries,
			RetriesWaitTime: Duration(opts.RetriesWaitTime),
			CodeLength:      opts.CodeLength,
			SessionTTL:      Duration(opts.SessionTTL),
		},
		Sessions: SessionsConfig{
			SweepInterval: Duration(10 * time.Minute),
		},
	}
}

// Load builds a Config. path may be empty, in which case the XDG default is
// used and a missing file is not an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	k := koanf.New(".")

	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	switch {
	case err == nil:
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field and range constraints.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").
				With("store", c.Store).
				Errorf("database url is required for the postgres store (set database.url or %s)", DatabaseURLEnv)
		}
	default:
		return oops.Code("CONFIG_INVALID").With("store", c.Store).Errorf("unknown store %q", c.Store)
	}
	if c.Database.ConnectAttempts < 1 {
		return oops.Code("CONFIG_INVALID").Errorf("database.connect_attempts must be at least 1")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.In("config").With("section", "log").Wrap(err)
	}
	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		return oops.Code("CONFIG_INVALID").With("format", c.Log.Format).Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Sessions.SweepInterval < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("sessions.sweep_interval cannot be negative")
	}
	if err := c.AuthOptions().Validate(); err != nil {
		return oops.In("config").With("section", "auth").Wrap(err)
	}
	if _, err := c.NewNormalizer(); err != nil {
		return oops.In("config").With("section", "phone").Wrap(err)
	}
	return nil
}

// AuthOptions converts the auth section to auth.Options.
func (c *Config) AuthOptions() auth.Options {
	return auth.Options{
		HashCost:        c.Auth.HashCost,
		WaitTime:        c.Auth.WaitTime.Std(),
		MaxRetries:      c.Auth.MaxRetries,
		RetriesWaitTime: c.Auth.RetriesWaitTime.Std(),
		CodeLength:      c.Auth.CodeLength,
		MasterCode:      c.Auth.MasterCode,
		SessionTTL:      c.Auth.SessionTTL.Std(),
	}
}

// NewNormalizer builds the phone normalizer described by the phone section.
func (c *Config) NewNormalizer() (*auth.E164Normalizer, error) {
	return auth.NewE164Normalizer(c.Phone.DefaultRegion, c.Phone.AdminNumbers)
}

// LogOptions converts the log section to logging.Options.
func (c *Config) LogOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{Format: c.Log.Format, Level: level}, nil
}

// YAML renders the configuration with secrets redacted.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if out.Auth.MasterCode != "" {
		out.Auth.MasterCode = logging.Redacted
	}
	out.Database.URL = redactURL(out.Database.URL)
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return data, nil
}
