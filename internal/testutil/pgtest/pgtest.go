// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package pgtest starts throwaway PostgreSQL containers for integration tests.
package pgtest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/phoneauth/internal/store"
)

// Image is the PostgreSQL image the suites run against.
const Image = "postgres:16-alpine"

const startupTimeout = 30 * time.Second

// Database is a running container and the URL to reach it.
type Database struct {
	URL string

	container *postgres.PostgresContainer
}

// Start runs a fresh container. Callers must Terminate it.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx, Image,
		postgres.WithDatabase("phoneauth_test"),
		postgres.WithUsername("phoneauth"),
		postgres.WithPassword("phoneauth"),
		// postgres logs readiness once for the init server and once for the real one
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, oops.Code("PGTEST_START_FAILED").With("image", Image).Wrap(err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, oops.Code("PGTEST_START_FAILED").With("image", Image).Wrap(err)
	}
	return &Database{URL: url, container: container}, nil
}

// Migrate applies every pending migration.
func (d *Database) Migrate() (err error) {
	migrator, err := store.NewMigrator(d.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return migrator.Up()
}

// Pool connects to the database.
func (d *Database) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	return store.Connect(ctx, d.URL, store.ConnectOptions{Attempts: 3, Backoff: time.Second})
}

// Terminate stops and removes the container. It is safe on a nil Database.
func (d *Database) Terminate(ctx context.Context) error {
	if d == nil || d.container == nil {
		return nil
	}
	if err := d.container.Terminate(ctx); err != nil {
		return oops.Code("PGTEST_TERMINATE_FAILED").Wrap(err)
	}
	return nil
}
