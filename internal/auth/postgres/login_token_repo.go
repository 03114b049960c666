// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/phoneauth/internal/auth"
)

const loginTokenColumns = `id, account_id, connection_id, token_hash, created_at, expires_at`

// LoginTokenRepository implements auth.LoginTokenStore using PostgreSQL.
type LoginTokenRepository struct {
	pool poolIface
}

// NewLoginTokenRepository creates a new LoginTokenRepository.
func NewLoginTokenRepository(pool poolIface) *LoginTokenRepository {
	return &LoginTokenRepository{pool: pool}
}

// Create stores a login token.
func (r *LoginTokenRepository) Create(ctx context.Context, token *auth.LoginToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO login_tokens (id, account_id, connection_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.AccountID.String(),
		token.ConnectionID,
		token.TokenHash,
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert login_token").
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a login token by its hash.
func (r *LoginTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.LoginToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+loginTokenColumns+`
		FROM login_tokens
		WHERE token_hash = $1
	`, tokenHash)

	token, err := scanLoginToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get login token by hash").
			Wrap(err)
	}
	return token, nil
}

// GetByConnection retrieves the newest login token an account holds on a
// connection.
func (r *LoginTokenRepository) GetByConnection(ctx context.Context, accountID ulid.ULID, connectionID string) (*auth.LoginToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+loginTokenColumns+`
		FROM login_tokens
		WHERE account_id = $1 AND connection_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, accountID.String(), connectionID)

	token, err := scanLoginToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("account_id", accountID.String()).
			With("connection_id", connectionID).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_CONNECTION_FAILED").
			With("operation", "get login token by connection").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return token, nil
}

// Delete removes a login token by ID.
func (r *LoginTokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM login_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete login_token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByAccount removes all login tokens of an account.
func (r *LoginTokenRepository) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM login_tokens WHERE account_id = $1`, accountID.String())
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_ACCOUNT_FAILED").
			With("operation", "delete login_tokens by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteByAccountExcept removes all login tokens of an account but the one
// with keepHash.
func (r *LoginTokenRepository) DeleteByAccountExcept(ctx context.Context, accountID ulid.ULID, keepHash string) (int64, error) {
	if keepHash == "" {
		return r.DeleteByAccount(ctx, accountID)
	}
	result, err := r.pool.Exec(ctx, `
		DELETE FROM login_tokens WHERE account_id = $1 AND token_hash <> $2
	`, accountID.String(), keepHash)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_BY_ACCOUNT_FAILED").
			With("operation", "delete other login_tokens by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all login tokens that expired before now.
func (r *LoginTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM login_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired login_tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanLoginToken scans a single row into a LoginToken.
// Callers are responsible for handling pgx.ErrNoRows.
func scanLoginToken(row pgx.Row) (*auth.LoginToken, error) {
	var (
		idStr        string
		accountIDStr string
		token        auth.LoginToken
	)

	err := row.Scan(&idStr, &accountIDStr, &token.ConnectionID, &token.TokenHash, &token.CreatedAt, &token.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan login_token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse login token id").
			With("id", idStr).
			Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT_ID").
			With("operation", "parse account id").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	token.ID = id
	token.AccountID = accountID
	return &token, nil
}

// Compile-time interface check.
var _ auth.LoginTokenStore = (*LoginTokenRepository)(nil)
