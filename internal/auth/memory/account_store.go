// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/phoneauth/internal/auth"
)

// AccountStore is an auth.AccountStore held in memory.
type AccountStore struct {
	mu      sync.Mutex
	byID    map[ulid.ULID]*auth.Account
	byPhone map[string]ulid.ULID
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[ulid.ULID]*auth.Account),
		byPhone: make(map[string]ulid.ULID),
	}
}

// Create stores a copy of account.
func (s *AccountStore) Create(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPhone[account.Phone.Number]; ok {
		return oops.Code(auth.CodePhoneConflict).
			With("phone", account.Phone.Number).
			Errorf("phone number already exists")
	}
	if _, ok := s.byID[account.ID]; ok {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("account_id", account.ID.String()).
			Errorf("account id already exists")
	}
	s.byID[account.ID] = account.Clone()
	s.byPhone[account.Phone.Number] = account.ID
	return nil
}

// GetByID returns a copy of the account.
func (s *AccountStore) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return a.Clone(), nil
}

// GetByPhone returns a copy of the account holding phoneNumber.
func (s *AccountStore) GetByPhone(_ context.Context, phoneNumber string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPhone[phoneNumber]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// ConditionalUpdate applies update when filter matches.
func (s *AccountStore) ConditionalUpdate(_ context.Context, filter auth.AccountFilter, update auth.AccountUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[filter.ID]
	if !ok || !filter.Matches(a) {
		return 0, nil
	}
	update.Apply(a)
	return 1, nil
}

// Delete removes an account.
func (s *AccountStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	delete(s.byPhone, a.Phone.Number)
	delete(s.byID, id)
	return nil
}

// Compile-time interface check.
var _ auth.AccountStore = (*AccountStore)(nil)
