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

// Issuer generates one-time codes, stores them on the account, and hands
// them to the SMS sender.
type Issuer struct {
	accounts AccountStore
	sms      SmsSender
	opts     Options
	metrics  *Metrics
	now      func() time.Time
}

// NewIssuer creates an Issuer. A nil clock uses time.Now.
func NewIssuer(accounts AccountStore, sms SmsSender, opts Options, metrics *Metrics, now func() time.Time) (*Issuer, error) {
	if accounts == nil {
		return nil, oops.Errorf("account store is required")
	}
	if sms == nil {
		return nil, oops.Code("SMS_SENDER_REQUIRED").Errorf("sms sender is required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{accounts: accounts, sms: sms, opts: opts, metrics: metrics, now: now}, nil
}

// Issue sends a fresh code to phone for the account. An empty phone falls
// back to the number on file.
//
// The rate limit check and the write happen as one conditional update keyed
// on the verification that was read, so of two concurrent requests only one
// issues a code.
func (i *Issuer) Issue(ctx context.Context, accountID ulid.ULID, phone string) error {
	account, err := i.accounts.GetByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeAccountNotFound).
			With("account_id", accountID.String()).
			Errorf("account not found")
	}
	if err != nil {
		return oops.Code("VERIFY_ISSUE_FAILED").
			With("operation", "get account").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	if phone == "" {
		phone = account.Phone.Number
	}
	if phone == "" {
		return oops.Code(CodePhoneRequired).
			With("account_id", accountID.String()).
			Errorf("no phone number to send a code to")
	}

	// Stores keep microseconds; the guard below compares for equality.
	now := i.now().UTC().Truncate(time.Microsecond)

	if rl := CheckIssuance(account.Verification, now, i.opts); !rl.Allowed() {
		i.metrics.RateLimited.WithLabelValues(string(rl.Tier)).Inc()
		return rl.Err()
	}

	code, err := GenerateCode(i.opts.CodeLength)
	if err != nil {
		return err
	}

	filter := AccountFilter{ID: account.ID}
	retryCount := 0
	if prev := account.Verification; prev != nil {
		retryCount = prev.RetryCount
		filter.LastIssuedAt = ptr(prev.LastIssuedAt)
	} else {
		filter.NoVerification = true
	}

	update := AccountUpdate{
		Verification: &Verification{
			Code:         code,
			TargetPhone:  phone,
			RetryCount:   retryCount + 1,
			LastIssuedAt: now,
		},
		UpdatedAt: now,
	}

	n, err := i.accounts.ConditionalUpdate(ctx, filter, update)
	if err != nil {
		return oops.Code("VERIFY_ISSUE_FAILED").
			With("operation", "store verification").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	if n == 0 {
		// Another request issued a code between our read and write.
		i.metrics.RateLimited.WithLabelValues(string(TierShort)).Inc()
		return RateLimitResult{Tier: TierShort, Remaining: i.opts.WaitTime}.Err()
	}
	i.metrics.CodesIssued.Inc()

	if err := i.sms.Send(ctx, phone, code); err != nil {
		i.metrics.SMSFailures.Inc()
		return oops.Code("VERIFY_SMS_SEND_FAILED").
			With("account_id", accountID.String()).
			With("phone", phone).
			Wrap(err)
	}
	return nil
}
