// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes  = 32                  // 32 bytes = 64 hex chars
	DefaultSessionTTL  = 90 * 24 * time.Hour // login tokens live 90 days
	maxConnectionIDLen = 128
)

// Connection identifies the caller of an operation. A zero AccountID means
// the connection is not logged in. TokenHash is the hash of the session
// token the caller presented; when set it names the caller's session
// exactly, otherwise the newest token on ID is taken as the caller's.
type Connection struct {
	ID        string
	AccountID ulid.ULID
	TokenHash string
}

// IsAuthenticated returns true if the connection is logged in.
func (c Connection) IsAuthenticated() bool {
	return c.AccountID.Compare(ulid.ULID{}) != 0
}

// LoginToken is a hashed session token bound to the connection that created it.
type LoginToken struct {
	ID           ulid.ULID
	AccountID    ulid.ULID
	ConnectionID string
	TokenHash    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Connection returns the connection acting through this token.
func (t *LoginToken) Connection() Connection {
	return Connection{ID: t.ConnectionID, AccountID: t.AccountID, TokenHash: t.TokenHash}
}

// NewLoginToken creates a validated LoginToken.
// connectionID is optional and may be empty.
func NewLoginToken(accountID ulid.ULID, connectionID, tokenHash string, expiresAt time.Time) (*LoginToken, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if len(connectionID) > maxConnectionIDLen {
		return nil, oops.Code("SESSION_INVALID_CONNECTION").
			With("max", maxConnectionIDLen).
			Errorf("connection ID too long")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &LoginToken{
		ID:           ulid.Make(),
		AccountID:    accountID,
		ConnectionID: connectionID,
		TokenHash:    tokenHash,
		CreatedAt:    time.Now(),
		ExpiresAt:    expiresAt,
	}, nil
}

// IsExpiredAt returns true if the token would be expired at the given time.
func (t *LoginToken) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// The plaintext token goes to the client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks if the plaintext token matches the stored hash
// in constant time.
func VerifySessionToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashSessionToken(token)), []byte(hash)) == 1
}

// LoginTokenStore manages session token persistence.
type LoginTokenStore interface {
	// Create stores a token. Re-creating a previously deleted token (same ID)
	// is how a captured token is restored.
	Create(ctx context.Context, token *LoginToken) error

	// GetByTokenHash retrieves a token by its hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*LoginToken, error)

	// GetByConnection retrieves the newest token an account holds on a connection.
	GetByConnection(ctx context.Context, accountID ulid.ULID, connectionID string) (*LoginToken, error)

	// Delete removes a token by ID.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByAccount removes every token of an account.
	DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteByAccountExcept removes every token of an account except the one
	// with keepHash. An empty keepHash removes all of them.
	DeleteByAccountExcept(ctx context.Context, accountID ulid.ULID, keepHash string) (int64, error)

	// DeleteExpired removes all tokens expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
