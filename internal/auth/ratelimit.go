// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"math"
	"time"

	"github.com/samber/oops"
)

// RateLimitTier names which window rejected an issuance.
type RateLimitTier string

// Rate limit tiers.
const (
	TierNone  RateLimitTier = ""
	TierShort RateLimitTier = "short"
	TierLong  RateLimitTier = "long"
)

// RateLimitResult contains the result of an issuance rate limit check.
type RateLimitResult struct {
	// Tier is TierNone when issuance is allowed.
	Tier RateLimitTier

	// Remaining is the time until the blocking window closes.
	Remaining time.Duration
}

// Allowed returns true if a new code may be issued.
func (r RateLimitResult) Allowed() bool {
	return r.Tier == TierNone
}

// CheckIssuance evaluates both rate limit windows against the current
// verification record. v may be nil.
//
// The short window always applies after an issuance. The long window applies
// once RetryCount exceeds MaxRetries; RetryCount is never reset by issuance, so
// past the threshold every request is checked against it.
func CheckIssuance(v *Verification, now time.Time, opts Options) RateLimitResult {
	if v == nil {
		return RateLimitResult{}
	}

	if next := v.LastIssuedAt.Add(opts.WaitTime); now.Before(next) {
		return RateLimitResult{Tier: TierShort, Remaining: next.Sub(now)}
	}

	if v.RetryCount > opts.MaxRetries {
		if next := v.LastIssuedAt.Add(opts.RetriesWaitTime); now.Before(next) {
			return RateLimitResult{Tier: TierLong, Remaining: next.Sub(now)}
		}
	}

	return RateLimitResult{}
}

// Err converts a rejecting result into a KindRateLimit error, or nil.
func (r RateLimitResult) Err() error {
	switch r.Tier {
	case TierShort:
		secs := ceilUnits(r.Remaining, time.Second)
		return oops.Code(CodeTooOften).
			With("retry_after", r.Remaining).
			With("wait_seconds", secs).
			Errorf("too often retries, try again in %d seconds", secs)
	case TierLong:
		mins := ceilUnits(r.Remaining, time.Minute)
		return oops.Code(CodeTooManyRetries).
			With("retry_after", r.Remaining).
			With("wait_minutes", mins).
			Errorf("too many retries, try again in %d minutes", mins)
	default:
		return nil
	}
}

// ceilUnits returns d in whole units, rounded up.
func ceilUnits(d, unit time.Duration) int64 {
	return int64(math.Ceil(float64(d) / float64(unit)))
}
