// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Selector names the account to log in as. Exactly one field must be set.
type Selector struct {
	ID    string
	Phone string
}

// ByID selects an account by its ULID.
func ByID(id ulid.ULID) Selector {
	return Selector{ID: id.String()}
}

// ByPhone selects an account by its stored phone number.
func ByPhone(phone string) Selector {
	return Selector{Phone: phone}
}

// Authenticator checks passwords.
type Authenticator struct {
	accounts AccountStore
	hasher   PasswordHasher
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(accounts AccountStore, hasher PasswordHasher) (*Authenticator, error) {
	if accounts == nil {
		return nil, oops.Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Authenticator{accounts: accounts, hasher: hasher}, nil
}

// Authenticate returns the account the selector names if password matches.
//
// Unknown account, missing password and wrong password are distinct
// KindAuth codes.
func (a *Authenticator) Authenticate(ctx context.Context, sel Selector, password Password) (*Account, error) {
	account, err := a.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}
	if !account.HasPassword() {
		return nil, oops.Code(CodeNoPassword).
			With("account_id", account.ID.String()).
			Errorf("user has no password set")
	}

	ok, err := a.hasher.Matches(password, *account.PasswordHash)
	if err != nil {
		return nil, wrapInternal(err, "AUTH_LOGIN_FAILED", "match password")
	}
	if !ok {
		return nil, oops.Code(CodeIncorrectPassword).
			With("account_id", account.ID.String()).
			Errorf("incorrect password")
	}
	return account, nil
}

func (a *Authenticator) resolve(ctx context.Context, sel Selector) (*Account, error) {
	var (
		account *Account
		err     error
	)
	switch {
	case sel.ID != "" && sel.Phone != "":
		return nil, oops.Code(CodeInvalidSelector).Errorf("select the account by id or by phone, not both")
	case sel.ID != "":
		id, perr := ulid.Parse(sel.ID)
		if perr != nil {
			return nil, oops.Code(CodeInvalidSelector).With("id", sel.ID).Wrap(perr)
		}
		account, err = a.accounts.GetByID(ctx, id)
	case sel.Phone != "":
		account, err = a.accounts.GetByPhone(ctx, sel.Phone)
	default:
		return nil, oops.Code(CodeInvalidSelector).Errorf("an account id or phone is required")
	}

	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeUserNotFound).Errorf("user not found")
	}
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account").
			Wrap(err)
	}
	return account, nil
}
