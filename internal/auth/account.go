// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Phone is an account's phone number and whether ownership has been proven.
type Phone struct {
	Number   string
	Verified bool
}

// Verification is an outstanding (or rate-limited) one-time code.
type Verification struct {
	Code         string
	TargetPhone  string
	RetryCount   int
	LastIssuedAt time.Time
}

// Account is a user record keyed by phone number.
type Account struct {
	ID           ulid.ULID
	Phone        Phone
	PasswordHash *string // nil means no password set
	Verification *Verification
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account for an unverified phone number.
// passwordHash is optional.
func NewAccount(phoneNumber string, passwordHash *string) (*Account, error) {
	if phoneNumber == "" {
		return nil, oops.Code(CodePhoneRequired).Errorf("need to set phone")
	}
	if passwordHash != nil && *passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty when provided")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Phone:        Phone{Number: phoneNumber},
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasPassword returns true if a storage verifier is set.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	if a.PasswordHash != nil {
		h := *a.PasswordHash
		c.PasswordHash = &h
	}
	if a.Verification != nil {
		v := *a.Verification
		c.Verification = &v
	}
	return &c
}

// AccountFilter is the predicate of a conditional update. ID is always
// matched; every non-nil field adds a clause.
type AccountFilter struct {
	ID           ulid.ULID
	PhoneNumber  *string
	Code         *string
	PasswordHash *string

	// LastIssuedAt matches the verification issued at exactly this time.
	LastIssuedAt *time.Time
	// NoVerification matches only accounts without a verification record.
	NoVerification bool
}

// Matches evaluates the filter against an account. Stores without a native
// conditional update use it under their own lock.
func (f AccountFilter) Matches(a *Account) bool {
	if a.ID != f.ID {
		return false
	}
	if f.PhoneNumber != nil && a.Phone.Number != *f.PhoneNumber {
		return false
	}
	if f.Code != nil && (a.Verification == nil || a.Verification.Code != *f.Code) {
		return false
	}
	if f.PasswordHash != nil && (a.PasswordHash == nil || *a.PasswordHash != *f.PasswordHash) {
		return false
	}
	if f.NoVerification && a.Verification != nil {
		return false
	}
	if f.LastIssuedAt != nil && (a.Verification == nil || !a.Verification.LastIssuedAt.Equal(*f.LastIssuedAt)) {
		return false
	}
	return true
}

// AccountUpdate is the write half of a conditional update.
type AccountUpdate struct {
	PhoneVerified     *bool
	PasswordHash      *string
	Verification      *Verification
	ClearVerification bool
	UpdatedAt         time.Time
}

// Apply writes the update into a. Verification takes precedence over
// ClearVerification.
func (u AccountUpdate) Apply(a *Account) {
	if u.PhoneVerified != nil {
		a.Phone.Verified = *u.PhoneVerified
	}
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		a.PasswordHash = &h
	}
	if u.ClearVerification {
		a.Verification = nil
	}
	if u.Verification != nil {
		v := *u.Verification
		a.Verification = &v
	}
	if !u.UpdatedAt.IsZero() {
		a.UpdatedAt = u.UpdatedAt
	}
}

// AccountStore manages account persistence.
type AccountStore interface {
	// Create stores a new account. A duplicate phone number yields a
	// KindConflict error.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByPhone retrieves an account by its exact phone number.
	GetByPhone(ctx context.Context, phoneNumber string) (*Account, error)

	// ConditionalUpdate applies update to the account matching filter in a
	// single atomic step and returns the number of affected records (0 or 1).
	ConditionalUpdate(ctx context.Context, filter AccountFilter, update AccountUpdate) (int64, error)

	// Delete removes an account.
	Delete(ctx context.Context, id ulid.ULID) error
}

func ptr[T any](v T) *T {
	return &v
}
