// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/phoneauth/internal/auth"
)

// phoneIndex is the unique index on accounts.phone_number.
const phoneIndex = "idx_accounts_phone_number"

const accountColumns = `id, phone_number, phone_verified, password_hash,
	       verify_code, verify_phone, verify_retry_count, verify_last_issued_at,
	       created_at, updated_at`

// poolIface is the subset of *pgxpool.Pool the repositories use.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountStore using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	code, phone, retries, issuedAt := verificationColumns(account.Verification)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, phone_number, phone_verified, password_hash,
			verify_code, verify_phone, verify_retry_count, verify_last_issued_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		account.ID.String(),
		account.Phone.Number,
		account.Phone.Verified,
		account.PasswordHash,
		code,
		phone,
		retries,
		issuedAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == phoneIndex {
			return oops.Code(auth.CodePhoneConflict).
				With("phone", account.Phone.Number).
				Wrapf(err, "phone number already exists")
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByPhone retrieves an account by its exact phone number.
func (r *AccountRepository) GetByPhone(ctx context.Context, phoneNumber string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone_number = $1`, phoneNumber)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by phone").
			Wrap(err)
	}
	return account, nil
}

// ConditionalUpdate applies update in a single UPDATE whose WHERE clause is
// the filter. The returned count is the number of rows changed.
func (r *AccountRepository) ConditionalUpdate(ctx context.Context, filter auth.AccountFilter, update auth.AccountUpdate) (int64, error) {
	sql, args := buildConditionalUpdate(filter, update)

	result, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "conditional update").
			With("account_id", filter.ID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Delete removes an account. Its login tokens go with it.
func (r *AccountRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(auth.CodeAccountNotFound).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// buildConditionalUpdate renders the UPDATE statement. SET arguments are
// numbered before WHERE arguments.
func buildConditionalUpdate(filter auth.AccountFilter, update auth.AccountUpdate) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var set []string
	if update.PhoneVerified != nil {
		set = append(set, "phone_verified = "+arg(*update.PhoneVerified))
	}
	if update.PasswordHash != nil {
		set = append(set, "password_hash = "+arg(*update.PasswordHash))
	}
	switch {
	case update.Verification != nil:
		v := update.Verification
		set = append(set,
			"verify_code = "+arg(v.Code),
			"verify_phone = "+arg(v.TargetPhone),
			"verify_retry_count = "+arg(v.RetryCount),
			"verify_last_issued_at = "+arg(v.LastIssuedAt),
		)
	case update.ClearVerification:
		set = append(set,
			"verify_code = NULL",
			"verify_phone = NULL",
			"verify_retry_count = 0",
			"verify_last_issued_at = NULL",
		)
	}
	if update.UpdatedAt.IsZero() {
		set = append(set, "updated_at = NOW()")
	} else {
		set = append(set, "updated_at = "+arg(update.UpdatedAt))
	}

	where := []string{"id = " + arg(filter.ID.String())}
	if filter.PhoneNumber != nil {
		where = append(where, "phone_number = "+arg(*filter.PhoneNumber))
	}
	if filter.Code != nil {
		where = append(where, "verify_code = "+arg(*filter.Code))
	}
	if filter.PasswordHash != nil {
		where = append(where, "password_hash = "+arg(*filter.PasswordHash))
	}
	if filter.LastIssuedAt != nil {
		where = append(where, "verify_last_issued_at = "+arg(*filter.LastIssuedAt))
	}
	if filter.NoVerification {
		where = append(where, "verify_last_issued_at IS NULL")
	}

	sql := "UPDATE accounts SET " + strings.Join(set, ", ") + " WHERE " + strings.Join(where, " AND ")
	return sql, args
}

// verificationColumns flattens a verification into nullable column values.
func verificationColumns(v *auth.Verification) (code, phone *string, retries int, issuedAt *time.Time) {
	if v == nil {
		return nil, nil, 0, nil
	}
	return &v.Code, &v.TargetPhone, v.RetryCount, &v.LastIssuedAt
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr        string
		account      auth.Account
		verifyCode   *string
		verifyPhone  *string
		retryCount   int
		lastIssuedAt *time.Time
	)

	err := row.Scan(
		&idStr,
		&account.Phone.Number,
		&account.Phone.Verified,
		&account.PasswordHash,
		&verifyCode,
		&verifyPhone,
		&retryCount,
		&lastIssuedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}
	account.ID = id

	if lastIssuedAt != nil {
		account.Verification = &auth.Verification{
			RetryCount:   retryCount,
			LastIssuedAt: *lastIssuedAt,
		}
		if verifyCode != nil {
			account.Verification.Code = *verifyCode
		}
		if verifyPhone != nil {
			account.Verification.TargetPhone = *verifyPhone
		}
	}
	return &account, nil
}

// Compile-time interface check.
var _ auth.AccountStore = (*AccountRepository)(nil)
