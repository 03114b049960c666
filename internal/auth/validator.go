// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Validator consumes one-time codes.
type Validator struct {
	accounts AccountStore
	phones   PhoneNormalizer
	hasher   PasswordHasher
	tokens   *Coordinator
	opts     Options
	metrics  *Metrics
	now      func() time.Time
}

// NewValidator creates a Validator. A nil clock uses time.Now.
func NewValidator(
	accounts AccountStore,
	phones PhoneNormalizer,
	hasher PasswordHasher,
	tokens *Coordinator,
	opts Options,
	metrics *Metrics,
	now func() time.Time,
) (*Validator, error) {
	switch {
	case accounts == nil:
		return nil, oops.Errorf("account store is required")
	case phones == nil:
		return nil, oops.Errorf("phone normalizer is required")
	case hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case tokens == nil:
		return nil, oops.Errorf("token coordinator is required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{
		accounts: accounts,
		phones:   phones,
		hasher:   hasher,
		tokens:   tokens,
		opts:     opts,
		metrics:  metrics,
		now:      now,
	}, nil
}

// codeMatch is the outcome of comparing a presented code.
type codeMatch struct {
	account *Account
	phone   string
	// master is true when only the master code matched, so the commit must
	// not require the stored code.
	master bool
}

// Check reports whether code would currently verify phone, without
// consuming it.
func (v *Validator) Check(ctx context.Context, phone, code string) error {
	_, err := v.match(ctx, phone, code)
	return err
}

// Validate consumes code for phone, marks the phone verified, and optionally
// sets a new password. When the password changes, every session token of the
// account is removed; the acting connection's token is put back if the
// commit does not go through.
func (v *Validator) Validate(ctx context.Context, conn Connection, phone, code string, newPassword *Password) (ulid.ULID, error) {
	id, err := v.validate(ctx, conn, phone, code, newPassword)
	v.metrics.Verifications.WithLabelValues(result(err)).Inc()
	return id, err
}

func (v *Validator) validate(ctx context.Context, conn Connection, phone, code string, newPassword *Password) (ulid.ULID, error) {
	m, err := v.match(ctx, phone, code)
	if err != nil {
		return ulid.ULID{}, err
	}
	account := m.account

	var newHash *string
	if newPassword != nil {
		h, err := v.hasher.DeriveVerifier(*newPassword)
		if err != nil {
			return ulid.ULID{}, wrapInternal(err, "VERIFY_FAILED", "derive verifier")
		}
		newHash = &h
	}

	var captured *LoginToken
	if newHash != nil {
		captured, err = v.tokens.CaptureCurrentToken(ctx, account.ID, conn)
		if err != nil {
			return ulid.ULID{}, err
		}
		if err := v.tokens.Detach(ctx, captured); err != nil {
			return ulid.ULID{}, err
		}
	}

	filter := AccountFilter{ID: account.ID, PhoneNumber: &m.phone}
	if !m.master {
		filter.Code = &code
	}
	update := AccountUpdate{
		PhoneVerified:     ptr(true),
		PasswordHash:      newHash,
		ClearVerification: true,
		UpdatedAt:         v.now().UTC(),
	}

	n, err := v.accounts.ConditionalUpdate(ctx, filter, update)
	if err != nil || n == 0 {
		if rerr := v.tokens.Restore(ctx, captured); rerr != nil {
			v.tokens.ReportFailure(ctx, "restore", account.ID, rerr)
		}
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("VERIFY_FAILED").
			With("operation", "commit verification").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if n == 0 {
		return ulid.ULID{}, oops.Code(CodeInvalidPhone).
			With("account_id", account.ID.String()).
			Errorf("invalid phone")
	}

	if newHash != nil {
		if _, err := v.tokens.InvalidateAll(ctx, account.ID); err != nil {
			v.tokens.ReportFailure(ctx, "invalidate_all", account.ID, err)
		}
	}
	return account.ID, nil
}

// match normalizes phone, resolves its account, and compares code against
// the outstanding one and the master code.
func (v *Validator) match(ctx context.Context, phone, code string) (*codeMatch, error) {
	if code == "" {
		return nil, oops.Code(CodeCodeRequired).Errorf("verification code is required")
	}
	normalized, err := v.phones.Normalize(phone)
	if err != nil {
		return nil, err
	}

	account, err := v.accounts.GetByPhone(ctx, normalized)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodePhoneNotFound).
			With("phone", normalized).
			Errorf("not a valid phone")
	}
	if err != nil {
		return nil, oops.Code("VERIFY_FAILED").
			With("operation", "get account by phone").
			Wrap(err)
	}

	if account.Verification == nil {
		return nil, oops.Code(CodeInvalidCode).
			With("account_id", account.ID.String()).
			Errorf("not a valid code")
	}

	stored := codesEqual(code, account.Verification.Code)
	master := v.opts.MasterCode != "" && codesEqual(code, v.opts.MasterCode)
	if !stored && !master {
		return nil, oops.Code(CodeInvalidCode).
			With("account_id", account.ID.String()).
			Errorf("not a valid code")
	}

	return &codeMatch{account: account, phone: normalized, master: !stored}, nil
}
