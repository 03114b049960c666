// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/internal/auth/mocks"
	"github.com/holomush/phoneauth/pkg/errutil"
)

func newTestToken(t *testing.T, accountID ulid.ULID, connID string) *auth.LoginToken {
	t.Helper()
	_, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	token, err := auth.NewLoginToken(accountID, connID, hash, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return token
}

func newCoordinator(t *testing.T, tokens auth.LoginTokenStore) (*auth.Coordinator, *auth.Metrics, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	metrics := auth.NewMetrics(nil)
	c, err := auth.NewCoordinator(tokens, logger, metrics)
	require.NoError(t, err)
	return c, metrics, &buf
}

func TestNewCoordinator_NilDependencies(t *testing.T) {
	_, err := auth.NewCoordinator(nil, slog.Default(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login token store is required")

	_, err = auth.NewCoordinator(mocks.NewMockLoginTokenStore(t), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestCoordinator_CaptureCurrentToken(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	t.Run("anonymous connection captures nothing", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)

		token, err := c.CaptureCurrentToken(ctx, accountID, auth.Connection{})
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("falls back to the connection's newest token", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		want := newTestToken(t, accountID, "conn-1")
		tokens.On("GetByConnection", ctx, accountID, "conn-1").Return(want, nil)

		token, err := c.CaptureCurrentToken(ctx, accountID, auth.Connection{ID: "conn-1"})
		require.NoError(t, err)
		assert.Equal(t, want, token)
	})

	t.Run("presented token wins over the connection", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		want := newTestToken(t, accountID, "cli")
		tokens.On("GetByTokenHash", ctx, want.TokenHash).Return(want, nil)

		token, err := c.CaptureCurrentToken(ctx, accountID, want.Connection())
		require.NoError(t, err)
		assert.Equal(t, want, token)
		tokens.AssertNotCalled(t, "GetByConnection", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("presented token of another account captures nothing", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		foreign := newTestToken(t, ulid.Make(), "conn-1")
		tokens.On("GetByTokenHash", ctx, foreign.TokenHash).Return(foreign, nil)

		token, err := c.CaptureCurrentToken(ctx, accountID, foreign.Connection())
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("not found captures nothing", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("GetByConnection", ctx, accountID, "conn-1").Return(nil, auth.ErrNotFound).Once()

		token, err := c.CaptureCurrentToken(ctx, accountID, auth.Connection{ID: "conn-1"})
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("transient store error is retried", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		want := newTestToken(t, accountID, "conn-1")
		tokens.On("GetByTokenHash", ctx, want.TokenHash).Return(nil, errors.New("db down")).Once()
		tokens.On("GetByTokenHash", ctx, want.TokenHash).Return(want, nil).Once()

		token, err := c.CaptureCurrentToken(ctx, accountID, want.Connection())
		require.NoError(t, err)
		assert.Equal(t, want, token)
	})

	t.Run("persistent store error", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("GetByConnection", ctx, accountID, "conn-1").Return(nil, errors.New("db down"))

		_, err := c.CaptureCurrentToken(ctx, accountID, auth.Connection{ID: "conn-1"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_CAPTURE_FAILED")
		tokens.AssertNumberOfCalls(t, "GetByConnection", 3)
	})
}

func TestCoordinator_Detach(t *testing.T) {
	ctx := context.Background()
	token := newTestToken(t, ulid.Make(), "conn-1")

	t.Run("nil token is a no-op", func(t *testing.T) {
		c, _, _ := newCoordinator(t, mocks.NewMockLoginTokenStore(t))
		assert.NoError(t, c.Detach(ctx, nil))
	})

	t.Run("already gone is fine", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("Delete", ctx, token.ID).Return(auth.ErrNotFound)
		assert.NoError(t, c.Detach(ctx, token))
	})

	t.Run("store error", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("Delete", ctx, token.ID).Return(errors.New("db down"))

		err := c.Detach(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_DETACH_FAILED")
	})
}

func TestCoordinator_Restore(t *testing.T) {
	ctx := context.Background()
	token := newTestToken(t, ulid.Make(), "conn-1")

	t.Run("retries transient failures", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("Create", mock.Anything, token).Return(errors.New("transient")).Twice()
		tokens.On("Create", mock.Anything, token).Return(nil).Once()

		assert.NoError(t, c.Restore(ctx, token))
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("Create", mock.Anything, token).Return(errors.New("db down")).Times(3)

		err := c.Restore(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_RESTORE_FAILED")
	})

	t.Run("context errors are not retried", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("Create", mock.Anything, token).Return(context.DeadlineExceeded).Once()

		err := c.Restore(ctx, token)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("nil token is a no-op", func(t *testing.T) {
		c, _, _ := newCoordinator(t, mocks.NewMockLoginTokenStore(t))
		assert.NoError(t, c.Restore(ctx, nil))
	})
}

func TestCoordinator_Invalidate(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	t.Run("except keeps the given hash", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("DeleteByAccountExcept", mock.Anything, accountID, "keep").Return(int64(3), nil)

		n, err := c.InvalidateExcept(ctx, accountID, "keep")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("all removes every token", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("DeleteByAccount", mock.Anything, accountID).Return(int64(0), errors.New("transient")).Once()
		tokens.On("DeleteByAccount", mock.Anything, accountID).Return(int64(2), nil).Once()

		n, err := c.InvalidateAll(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("persistent failure", func(t *testing.T) {
		tokens := mocks.NewMockLoginTokenStore(t)
		c, _, _ := newCoordinator(t, tokens)
		tokens.On("DeleteByAccountExcept", mock.Anything, accountID, "").Return(int64(0), errors.New("db down")).Times(3)

		_, err := c.InvalidateExcept(ctx, accountID, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_INVALIDATE_FAILED")
		errutil.AssertErrorContext(t, err, "keep_current", false)
	})
}

func TestCoordinator_ReportFailure(t *testing.T) {
	c, metrics, buf := newCoordinator(t, mocks.NewMockLoginTokenStore(t))
	accountID := ulid.Make()

	c.ReportFailure(context.Background(), "restore", accountID, errors.New("db down"))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TokenCoordination.WithLabelValues("restore")), 0)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "session token coordination failed", entry["msg"])
	assert.Equal(t, "restore", entry["operation"])
	assert.Equal(t, accountID.String(), entry["account_id"])
	assert.Equal(t, "db down", entry["error"])
}
