// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Verification defaults.
const (
	DefaultCodeLength      = 4
	DefaultWaitTime        = time.Minute
	DefaultMaxRetries      = 2
	DefaultRetriesWaitTime = 6 * time.Hour
	maxCodeLength          = 12
)

// Options tunes every component. It is passed by value at construction time;
// there is no package-level configuration.
type Options struct {
	// HashCost is the bcrypt cost factor.
	HashCost int
	// WaitTime is the minimum time between two issued codes.
	WaitTime time.Duration
	// MaxRetries is the issuance count after which RetriesWaitTime applies.
	MaxRetries int
	// RetriesWaitTime is the long cool-down once MaxRetries is exceeded.
	RetriesWaitTime time.Duration
	// CodeLength is the number of digits in an issued code.
	CodeLength int
	// MasterCode satisfies any pending verification. Empty disables it.
	MasterCode string
	// SessionTTL is the lifetime of a login token.
	SessionTTL time.Duration
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		HashCost:        DefaultHashCost,
		WaitTime:        DefaultWaitTime,
		MaxRetries:      DefaultMaxRetries,
		RetriesWaitTime: DefaultRetriesWaitTime,
		CodeLength:      DefaultCodeLength,
		SessionTTL:      DefaultSessionTTL,
	}
}

// Validate checks that the options are usable.
func (o Options) Validate() error {
	if o.HashCost < bcrypt.MinCost || o.HashCost > bcrypt.MaxCost {
		return oops.Code("OPTIONS_INVALID").
			With("hash_cost", o.HashCost).
			Errorf("hash cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if o.WaitTime < 0 || o.RetriesWaitTime < 0 {
		return oops.Code("OPTIONS_INVALID").Errorf("verification wait times cannot be negative")
	}
	if o.MaxRetries < 0 {
		return oops.Code("OPTIONS_INVALID").
			With("max_retries", o.MaxRetries).
			Errorf("verification max retries cannot be negative")
	}
	if o.CodeLength < 1 || o.CodeLength > maxCodeLength {
		return oops.Code("OPTIONS_INVALID").
			With("code_length", o.CodeLength).
			Errorf("verification code length must be between 1 and %d", maxCodeLength)
	}
	if o.SessionTTL <= 0 {
		return oops.Code("OPTIONS_INVALID").Errorf("session TTL must be positive")
	}
	return nil
}
