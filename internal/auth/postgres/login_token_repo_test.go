// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/phoneauth/internal/auth"
	"github.com/holomush/phoneauth/pkg/errutil"
)

var loginTokenColumnNames = []string{"id", "account_id", "connection_id", "token_hash", "created_at", "expires_at"}

func newMockTokenRepo(t *testing.T) (pgxmock.PgxPoolIface, *LoginTokenRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewLoginTokenRepository(mock)
}

func TestLoginTokenRepository_Create(t *testing.T) {
	mock, repo := newMockTokenRepo(t)
	token := &auth.LoginToken{
		ID:           ulid.Make(),
		AccountID:    ulid.Make(),
		ConnectionID: "conn-1",
		TokenHash:    "abc",
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	mock.ExpectExec(`INSERT INTO login_tokens`).
		WithArgs(token.ID.String(), token.AccountID.String(), "conn-1", "abc", token.CreatedAt, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), token))
}

func TestLoginTokenRepository_GetByConnection(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	t.Run("returns newest token", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		id := ulid.Make()
		now := time.Now().UTC()
		mock.ExpectQuery(`FROM login_tokens\s+WHERE account_id = \$1 AND connection_id = \$2\s+ORDER BY created_at DESC`).
			WithArgs(accountID.String(), "conn-1").
			WillReturnRows(pgxmock.NewRows(loginTokenColumnNames).
				AddRow(id.String(), accountID.String(), "conn-1", "hash", now, now.Add(time.Hour)))

		token, err := repo.GetByConnection(ctx, accountID, "conn-1")
		require.NoError(t, err)
		assert.Equal(t, id, token.ID)
		assert.Equal(t, accountID, token.AccountID)
		assert.Equal(t, "hash", token.TokenHash)
	})

	t.Run("returns ErrNotFound", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		mock.ExpectQuery(`FROM login_tokens`).
			WithArgs(accountID.String(), "conn-2").
			WillReturnRows(pgxmock.NewRows(loginTokenColumnNames))

		_, err := repo.GetByConnection(ctx, accountID, "conn-2")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("rejects corrupt ids", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		now := time.Now()
		mock.ExpectQuery(`FROM login_tokens`).
			WithArgs(accountID.String(), "conn-3").
			WillReturnRows(pgxmock.NewRows(loginTokenColumnNames).
				AddRow("not-a-ulid", accountID.String(), "conn-3", "hash", now, now))

		_, err := repo.GetByConnection(ctx, accountID, "conn-3")
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_ID")
	})
}

func TestLoginTokenRepository_GetByTokenHash(t *testing.T) {
	mock, repo := newMockTokenRepo(t)
	mock.ExpectQuery(`FROM login_tokens\s+WHERE token_hash = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(loginTokenColumnNames))

	_, err := repo.GetByTokenHash(context.Background(), "missing")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestLoginTokenRepository_Delete(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("deletes token", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		mock.ExpectExec(`DELETE FROM login_tokens WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("returns ErrNotFound for missing token", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		mock.ExpectExec(`DELETE FROM login_tokens WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		assert.ErrorIs(t, repo.Delete(ctx, id), auth.ErrNotFound)
	})
}

func TestLoginTokenRepository_DeleteByAccountExcept(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	t.Run("keeps the named token", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		mock.ExpectExec(`DELETE FROM login_tokens WHERE account_id = \$1 AND token_hash <> \$2`).
			WithArgs(accountID.String(), "keep").
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := repo.DeleteByAccountExcept(ctx, accountID, "keep")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("empty keep hash removes all", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		mock.ExpectExec(`DELETE FROM login_tokens WHERE account_id = \$1$`).
			WithArgs(accountID.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		n, err := repo.DeleteByAccountExcept(ctx, accountID, "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("wraps exec errors", func(t *testing.T) {
		mock, repo := newMockTokenRepo(t)
		mock.ExpectExec(`DELETE FROM login_tokens`).
			WithArgs(accountID.String(), "keep").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.DeleteByAccountExcept(ctx, accountID, "keep")
		errutil.AssertErrorCode(t, err, "SESSION_DELETE_BY_ACCOUNT_FAILED")
	})
}

func TestLoginTokenRepository_DeleteExpired(t *testing.T) {
	mock, repo := newMockTokenRepo(t)
	now := time.Now()
	mock.ExpectExec(`DELETE FROM login_tokens WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
