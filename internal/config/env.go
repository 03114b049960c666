// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/samber/oops"
)

// Environment variables consulted after the file and flags.
const (
	DatabaseURLEnv = "DATABASE_URL"
	MasterCodeEnv  = "PHONEAUTH_MASTER_CODE"
)

// environment holds settings that may come from the process environment.
// Each one only fills a value the file and flags left empty.
type environment struct {
	DatabaseURL string `env:"DATABASE_URL"`
	MasterCode  string `env:"PHONEAUTH_MASTER_CODE"`
}

func applyEnv(cfg *Config) error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return oops.Code("CONFIG_ENV_INVALID").Wrapf(err, "parse env")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = e.DatabaseURL
	}
	if cfg.Auth.MasterCode == "" {
		cfg.Auth.MasterCode = e.MasterCode
	}
	return nil
}
