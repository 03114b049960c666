// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/pkg/errutil"
)

func TestGenerateSessionToken(t *testing.T) {
	t.Run("generates secure token", func(t *testing.T) {
		token, hash, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.Len(t, hash, 64)
		assert.NotEqual(t, token, hash)
		assert.Equal(t, auth.HashSessionToken(token), hash)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		token2, _, err := auth.GenerateSessionToken()
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
	})
}

func TestVerifySessionToken(t *testing.T) {
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	assert.True(t, auth.VerifySessionToken(token, hash))
	assert.False(t, auth.VerifySessionToken("other", hash))
	assert.False(t, auth.VerifySessionToken("", hash))
	assert.False(t, auth.VerifySessionToken(token, ""))
}

func TestNewLoginToken(t *testing.T) {
	accountID := ulid.Make()
	expires := time.Now().Add(time.Hour)

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.NewLoginToken(accountID, "conn-1", "hash", expires)
		require.NoError(t, err)
		assert.Equal(t, accountID, token.AccountID)
		assert.Equal(t, "conn-1", token.ConnectionID)
		assert.NotEqual(t, ulid.ULID{}, token.ID)
	})

	t.Run("empty connection is allowed", func(t *testing.T) {
		_, err := auth.NewLoginToken(accountID, "", "hash", expires)
		assert.NoError(t, err)
	})

	tests := []struct {
		name      string
		accountID ulid.ULID
		connID    string
		hash      string
		expires   time.Time
		code      string
	}{
		{"zero account", ulid.ULID{}, "c", "hash", expires, "SESSION_INVALID_ACCOUNT"},
		{"empty hash", accountID, "c", "", expires, "SESSION_INVALID_HASH"},
		{"long connection", accountID, strings.Repeat("c", 129), "hash", expires, "SESSION_INVALID_CONNECTION"},
		{"zero expiry", accountID, "c", "hash", time.Time{}, "SESSION_INVALID_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewLoginToken(tt.accountID, tt.connID, tt.hash, tt.expires)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestLoginToken_IsExpiredAt(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	token := &auth.LoginToken{ExpiresAt: base}

	assert.False(t, token.IsExpiredAt(base.Add(-time.Second)))
	assert.False(t, token.IsExpiredAt(base))
	assert.True(t, token.IsExpiredAt(base.Add(time.Nanosecond)))
}

func TestConnection_IsAuthenticated(t *testing.T) {
	assert.False(t, auth.Connection{ID: "c"}.IsAuthenticated())
	assert.True(t, auth.Connection{ID: "c", AccountID: ulid.Make()}.IsAuthenticated())
}
