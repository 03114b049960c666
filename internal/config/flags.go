// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/phoneauth/internal/xdg"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"store":          "store",
	"database-url":   "database.url",
	"auto-migrate":   "database.auto_migrate",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"metrics-addr":   "metrics.addr",
	"default-region": "phone.default_region",
	"admin-number":   "phone.admin_numbers",
	"sweep-interval": "sessions.sweep_interval",
}

// RegisterFlags adds the configuration override flags to fs. Only flags the
// user actually sets take precedence over the file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("store", d.Store, "storage backend (memory or postgres)")
	fs.String("database-url", "", "PostgreSQL connection URL (default $"+DatabaseURLEnv+")")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations on startup")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("metrics-addr", d.Metrics.Addr, "observability server address (empty to disable)")
	fs.String("default-region", d.Phone.DefaultRegion, "region for phone numbers without a country code")
	fs.StringSlice("admin-number", nil, "admin phone number or glob pattern (repeatable)")
	fs.Duration("sweep-interval", d.Sessions.SweepInterval.Std(), "interval between expired-session sweeps (0 disables)")
}

func flagKey(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		if f.Value.Type() == "stringSlice" {
			vals, err := fs.GetStringSlice(f.Name)
			if err != nil {
				return "", nil
			}
			return key, vals
		}
		return key, f.Value.String()
	}
}

// DefaultPath returns the config file consulted when none is given.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile()
	if err != nil {
		return "", oops.Code("CONFIG_PATH_FAILED").Wrap(err)
	}
	return path, nil
}

// WriteDefault writes the default configuration to path, or to DefaultPath
// when path is empty, and returns the path written. An existing file is only
// replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return "", err
		}
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", oops.Code("CONFIG_EXISTS").With("path", path).Errorf("%s already exists", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}

	data, err := Default().YAML()
	if err != nil {
		return "", err
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}

// Duration is a time.Duration written as a Go duration string ("90s", "6h").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return oops.Code("CONFIG_DURATION_INVALID").With("value", string(text)).Wrap(err)
	}
	*d = Duration(v)
	return nil
}

// JSONSchema describes Duration as a string in generated schemas.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`,
		Description: "Go duration string, e.g. 90s or 6h",
	}
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable]"
	}
	return u.Redacted()
}
