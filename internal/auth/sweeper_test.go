// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/pkg/errutil"
)

type pruneFunc func(ctx context.Context) (int64, error)

func (f pruneFunc) PruneExpiredSessions(ctx context.Context) (int64, error) { return f(ctx) }

func TestNewSessionSweeper_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	noop := pruneFunc(func(context.Context) (int64, error) { return 0, nil })

	_, err := auth.NewSessionSweeper(nil, time.Second, logger)
	assert.Error(t, err)

	_, err = auth.NewSessionSweeper(noop, 0, logger)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "OPTIONS_INVALID")

	_, err = auth.NewSessionSweeper(noop, time.Second, nil)
	assert.Error(t, err)
}

func TestSessionSweeper_RunOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	t.Run("logs pruned count", func(t *testing.T) {
		buf.Reset()
		w, err := auth.NewSessionSweeper(pruneFunc(func(context.Context) (int64, error) { return 3, nil }), time.Hour, logger)
		require.NoError(t, err)

		n, err := w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.Contains(t, buf.String(), `"count":3`)
	})

	t.Run("quiet when nothing expired", func(t *testing.T) {
		buf.Reset()
		w, err := auth.NewSessionSweeper(pruneFunc(func(context.Context) (int64, error) { return 0, nil }), time.Hour, logger)
		require.NoError(t, err)

		_, err = w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("returns store errors", func(t *testing.T) {
		boom := errors.New("db down")
		w, err := auth.NewSessionSweeper(pruneFunc(func(context.Context) (int64, error) { return 0, boom }), time.Hour, logger)
		require.NoError(t, err)

		_, err = w.RunOnce(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestSessionSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int64
	var buf bytes.Buffer
	w, err := auth.NewSessionSweeper(pruneFunc(func(context.Context) (int64, error) {
		if calls.Add(1) == 2 {
			return 0, errors.New("transient")
		}
		return 0, nil
	}), 5*time.Millisecond, slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, err)

	w.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	w.Stop()

	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no sweeps after Stop")
	assert.Contains(t, buf.String(), "session sweep failed")
}

func TestSessionSweeper_PrunesServiceSessions(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.register(t, testPhone, "123456")
	_, err := f.svc.Login(ctx, auth.Connection{ID: "conn-1"}, auth.ByPhone(testPhone), auth.RawPassword("123456"))
	require.NoError(t, err)
	live := f.tokens.Len()
	require.Positive(t, live)

	f.clock.Advance(auth.DefaultSessionTTL + time.Second)

	w, err := auth.NewSessionSweeper(f.svc, time.Hour, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(live), n)
	assert.Zero(t, f.tokens.Len())
}
