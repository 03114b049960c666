// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/internal/auth/memory"
	"github.com/holomush/phoneauth/internal/auth/postgres"
	"github.com/holomush/phoneauth/internal/config"
	"github.com/holomush/phoneauth/internal/observability"
	"github.com/holomush/phoneauth/internal/store"
)

// Backend is the storage a Service runs on.
type Backend struct {
	Accounts auth.AccountStore
	Tokens   auth.LoginTokenStore
	// Ready reports why the storage is unreachable, or nil.
	Ready observability.ReadinessChecker
	// Close releases the storage. It may be nil.
	Close func()
}

func (b *Backend) close() {
	if b != nil && b.Close != nil {
		b.Close()
	}
}

// NewMemoryBackend returns a Backend on fresh in-memory stores.
func NewMemoryBackend() *Backend {
	return &Backend{
		Accounts: memory.NewAccountStore(),
		Tokens:   memory.NewLoginTokenStore(),
		Ready:    func(context.Context) error { return nil },
	}
}

// openBackend opens the store selected by cfg, migrating first when
// database.auto_migrate is set.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) (*Backend, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; accounts and sessions are lost on exit")
		return NewMemoryBackend(), nil
	}

	if cfg.Database.AutoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return nil, err
		}
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{
		Attempts: uint64(cfg.Database.ConnectAttempts), //nolint:gosec // validated >= 1
		Backoff:  cfg.Database.ConnectBackoff.Std(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	return &Backend{
		Accounts: postgres.NewAccountRepository(pool),
		Tokens:   postgres.NewLoginTokenRepository(pool),
		Ready: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return oops.Code("DATABASE_UNREACHABLE").Wrap(err)
			}
			return nil
		},
		Close: pool.Close,
	}, nil
}

// runAutoMigration applies pending migrations before the pool is opened.
// A failure to close the migrator is logged, not returned.
func runAutoMigration(databaseURL string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr, "note", "connection may leak")
		}
	}()

	logger.Info("running database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations complete")
	return nil
}

// newService wires an auth.Service from cfg on top of backend.
func newService(cfg *config.Config, backend *Backend, logger *slog.Logger, metrics *auth.Metrics, sms auth.SmsSender) (*auth.Service, error) {
	phones, err := cfg.NewNormalizer()
	if err != nil {
		return nil, err
	}
	opts := cfg.AuthOptions()
	return auth.NewService(opts, auth.Deps{
		Accounts: backend.Accounts,
		Tokens:   backend.Tokens,
		Hasher:   auth.NewBcryptHasher(opts.HashCost),
		Phones:   phones,
		SMS:      sms,
		Logger:   logger,
		Metrics:  metrics,
	})
}
