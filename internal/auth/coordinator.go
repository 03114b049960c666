// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/phoneauth/pkg/errutil"
)

// Token coordination retry schedule: three attempts, 50ms then 100ms apart.
const (
	tokenRetryBase = 50 * time.Millisecond
	tokenRetries   = 2
)

// Coordinator keeps an account's session tokens consistent with credential
// changes.
type Coordinator struct {
	tokens  LoginTokenStore
	logger  *slog.Logger
	metrics *Metrics
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(tokens LoginTokenStore, logger *slog.Logger, metrics *Metrics) (*Coordinator, error) {
	if tokens == nil {
		return nil, oops.Errorf("login token store is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Coordinator{tokens: tokens, logger: logger, metrics: metrics}, nil
}

// CaptureCurrentToken returns the account's token conn acts through, or nil
// if it holds none. A token presented by conn wins over the connection's
// newest token, and a token of another account is never returned.
func (c *Coordinator) CaptureCurrentToken(ctx context.Context, accountID ulid.ULID, conn Connection) (*LoginToken, error) {
	var lookup func(context.Context) (*LoginToken, error)
	switch {
	case conn.TokenHash != "":
		lookup = func(ctx context.Context) (*LoginToken, error) {
			return c.tokens.GetByTokenHash(ctx, conn.TokenHash)
		}
	case conn.ID != "":
		lookup = func(ctx context.Context) (*LoginToken, error) {
			return c.tokens.GetByConnection(ctx, accountID, conn.ID)
		}
	default:
		return nil, nil
	}

	var token *LoginToken
	err := c.withRetry(ctx, func(ctx context.Context) error {
		t, err := lookup(ctx)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		token = t
		return err
	})
	if err != nil {
		return nil, oops.Code("SESSION_CAPTURE_FAILED").
			With("account_id", accountID.String()).
			With("connection_id", conn.ID).
			Wrap(err)
	}
	if token != nil && token.AccountID != accountID {
		return nil, nil
	}
	return token, nil
}

// Detach removes a captured token ahead of a commit that may need it back.
func (c *Coordinator) Detach(ctx context.Context, token *LoginToken) error {
	if token == nil {
		return nil
	}
	err := c.tokens.Delete(ctx, token.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_DETACH_FAILED").
			With("token_id", token.ID.String()).
			Wrap(err)
	}
	return nil
}

// Restore reinstates a detached token.
func (c *Coordinator) Restore(ctx context.Context, token *LoginToken) error {
	if token == nil {
		return nil
	}
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.tokens.Create(ctx, token)
	})
	if err != nil {
		return oops.Code("SESSION_RESTORE_FAILED").
			With("token_id", token.ID.String()).
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// InvalidateExcept removes every token of the account but the one whose hash
// is keepHash. An empty keepHash removes all of them.
func (c *Coordinator) InvalidateExcept(ctx context.Context, accountID ulid.ULID, keepHash string) (int64, error) {
	var removed int64
	err := c.withRetry(ctx, func(ctx context.Context) error {
		n, err := c.tokens.DeleteByAccountExcept(ctx, accountID, keepHash)
		removed = n
		return err
	})
	if err != nil {
		return 0, oops.Code("SESSION_INVALIDATE_FAILED").
			With("account_id", accountID.String()).
			With("keep_current", keepHash != "").
			Wrap(err)
	}
	return removed, nil
}

// InvalidateAll removes every token of the account.
func (c *Coordinator) InvalidateAll(ctx context.Context, accountID ulid.ULID) (int64, error) {
	var removed int64
	err := c.withRetry(ctx, func(ctx context.Context) error {
		n, err := c.tokens.DeleteByAccount(ctx, accountID)
		removed = n
		return err
	})
	if err != nil {
		return 0, oops.Code("SESSION_INVALIDATE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return removed, nil
}

// ReportFailure records a coordination step that failed after its commit
// already succeeded. The commit result stands.
func (c *Coordinator) ReportFailure(ctx context.Context, operation string, accountID ulid.ULID, err error) {
	c.metrics.TokenCoordination.WithLabelValues(operation).Inc()
	errutil.LogWarning(ctx, c.logger, "session token coordination failed", err,
		"operation", operation,
		"account_id", accountID.String(),
	)
}

// withRetry retries fn on store failures. Context errors end the loop.
func (c *Coordinator) withRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(tokenRetries, retry.NewExponential(tokenRetryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return retry.RetryableError(err)
	})
}
