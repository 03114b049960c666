// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/internal/config"
	"github.com/holomush/phoneauth/internal/observability"
	"github.com/holomush/phoneauth/internal/store"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// BackendFactory opens the account and session stores.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (*Backend, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, logger *slog.Logger, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// SMSSenderFactory creates the sender verification codes go out through.
	// Default: auth.NewLogSender
	SMSSenderFactory func(logger *slog.Logger) auth.SmsSender
}

// withDefaults returns a copy of d (which may be nil) with defaults filled in.
func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, logger *slog.Logger, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, logger, readinessChecker)
		}
	}
	if out.SMSSenderFactory == nil {
		out.SMSSenderFactory = func(logger *slog.Logger) auth.SmsSender {
			return auth.NewLogSender(logger)
		}
	}
	return out
}

// AutoMigrator is the part of store.Migrator startup migration needs.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Migrator wraps the methods the migrate command uses from store.Migrator.
type Migrator interface {
	AutoMigrator
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() prometheus.Registerer
}

var (
	_ Migrator            = (*store.Migrator)(nil)
	_ ObservabilityServer = (*observability.Server)(nil)
)
