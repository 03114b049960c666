// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/phoneauth/pkg/errutil"
)

// SessionPruner removes expired session tokens. *Service implements it.
type SessionPruner interface {
	PruneExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweeper prunes expired session tokens on an interval.
type SessionSweeper struct {
	pruner   SessionPruner
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionSweeper creates a sweeper. interval must be positive.
func NewSessionSweeper(pruner SessionPruner, interval time.Duration, logger *slog.Logger) (*SessionSweeper, error) {
	if pruner == nil {
		return nil, oops.Errorf("session pruner is required")
	}
	if interval <= 0 {
		return nil, oops.Code("OPTIONS_INVALID").With("interval", interval).Errorf("sweep interval must be positive")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &SessionSweeper{
		pruner:   pruner,
		interval: interval,
		logger:   logger.With("component", "session_sweeper"),
	}, nil
}

// Start begins sweeping in the background. The first sweep runs immediately.
func (w *SessionSweeper) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the sweeper and waits for an in-flight sweep to finish.
func (w *SessionSweeper) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// RunOnce performs a single sweep.
func (w *SessionSweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.pruner.PruneExpiredSessions(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "pruned expired sessions", "count", n)
	}
	return n, nil
}

func (w *SessionSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		errutil.LogError(ctx, w.logger, "session sweep failed", err)
	}
}
