// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/phoneauth/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), auth.KindInternal},
		{"unknown code", oops.Code("DB_DOWN").Errorf("boom"), auth.KindInternal},
		{"validation", oops.Code(auth.CodePhoneRequired).Errorf("x"), auth.KindValidation},
		{"not found", oops.Code(auth.CodePhoneNotFound).Errorf("x"), auth.KindNotFound},
		{"rate limit", oops.Code(auth.CodeTooOften).Errorf("x"), auth.KindRateLimit},
		{"auth", oops.Code(auth.CodeIncorrectPassword).Errorf("x"), auth.KindAuth},
		{"conflict", oops.Code(auth.CodePhoneConflict).Errorf("x"), auth.KindConflict},
		{"wrapped keeps inner code", oops.Code("OUTER").Wrap(oops.Code(auth.CodeInvalidCode).Errorf("x")), auth.KindAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Run("missing for other kinds", func(t *testing.T) {
		_, ok := auth.RetryAfter(oops.Code(auth.CodeInvalidCode).With("retry_after", time.Second).Errorf("x"))
		assert.False(t, ok)
	})

	t.Run("missing for nil", func(t *testing.T) {
		_, ok := auth.RetryAfter(nil)
		assert.False(t, ok)
	})
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"login user not found", oops.Code(auth.CodeUserNotFound).Errorf("detail"), "user not found"},
		{"login wrong password", oops.Code(auth.CodeIncorrectPassword).Errorf("detail"), "incorrect password"},
		{"not logged in", oops.Code(auth.CodeNotLoggedIn).Errorf("detail"), "must be logged in"},
		{"rate limit uses error message", auth.RateLimitResult{Tier: auth.TierShort, Remaining: 5 * time.Second}.Err(), "too often retries, try again in 5 seconds"},
		{"internal detail is hidden", oops.Code("DB_DOWN").Errorf("connection refused"), "internal error"},
		{"plain error is hidden", errors.New("connection refused"), "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.PublicMessage(tt.err))
		})
	}
}
