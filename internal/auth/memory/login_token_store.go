// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/phoneauth/internal/auth"
)

// LoginTokenStore is an auth.LoginTokenStore held in memory.
type LoginTokenStore struct {
	mu     sync.Mutex
	tokens map[ulid.ULID]auth.LoginToken
}

// NewLoginTokenStore creates an empty LoginTokenStore.
func NewLoginTokenStore() *LoginTokenStore {
	return &LoginTokenStore{tokens: make(map[ulid.ULID]auth.LoginToken)}
}

// Create stores a copy of token.
func (s *LoginTokenStore) Create(_ context.Context, token *auth.LoginToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.ID]; ok {
		return oops.Code("SESSION_CREATE_FAILED").
			With("token_id", token.ID.String()).
			Errorf("login token already exists")
	}
	s.tokens[token.ID] = *token
	return nil
}

// GetByTokenHash returns the token with tokenHash.
func (s *LoginTokenStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.LoginToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByConnection returns the newest token the account holds on connectionID.
func (s *LoginTokenStore) GetByConnection(_ context.Context, accountID ulid.ULID, connectionID string) (*auth.LoginToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *auth.LoginToken
	for _, t := range s.tokens {
		if t.AccountID != accountID || t.ConnectionID != connectionID {
			continue
		}
		if found == nil || t.CreatedAt.After(found.CreatedAt) ||
			(t.CreatedAt.Equal(found.CreatedAt) && t.ID.Compare(found.ID) > 0) {
			found = &t
		}
	}
	if found == nil {
		return nil, auth.ErrNotFound
	}
	return found, nil
}

// Delete removes a token.
func (s *LoginTokenStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.tokens, id)
	return nil
}

// DeleteByAccount removes every token of the account.
func (s *LoginTokenStore) DeleteByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	return s.DeleteByAccountExcept(ctx, accountID, "")
}

// DeleteByAccountExcept removes every token of the account but keepHash.
func (s *LoginTokenStore) DeleteByAccountExcept(_ context.Context, accountID ulid.ULID, keepHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tokens {
		if t.AccountID != accountID || (keepHash != "" && t.TokenHash == keepHash) {
			continue
		}
		delete(s.tokens, id)
		n++
	}
	return n, nil
}

// DeleteExpired removes tokens that expired before now.
func (s *LoginTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.tokens {
		if t.IsExpiredAt(now) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored tokens.
func (s *LoginTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Compile-time interface check.
var _ auth.LoginTokenStore = (*LoginTokenStore)(nil)
