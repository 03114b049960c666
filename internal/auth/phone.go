// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/nyaruka/phonenumbers"
	"github.com/samber/oops"
)

// PhoneNormalizer turns user input into the canonical stored phone form.
type PhoneNormalizer interface {
	// Normalize returns the canonical number or a KindValidation error.
	Normalize(raw string) (string, error)
}

// E164Normalizer formats numbers as E.164. Numbers matching an admin pattern
// pass through unchanged so test and operator numbers need not be real.
type E164Normalizer struct {
	region string
	admin  []glob.Glob
}

// NewE164Normalizer creates an E164Normalizer. defaultRegion is the ISO 3166
// region assumed for numbers without a leading '+'; empty requires '+'.
// adminPatterns are glob patterns; a literal entry matches only itself.
func NewE164Normalizer(defaultRegion string, adminPatterns []string) (*E164Normalizer, error) {
	n := &E164Normalizer{region: strings.ToUpper(defaultRegion)}
	for _, p := range adminPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("PHONE_ADMIN_PATTERN_INVALID").With("pattern", p).Wrap(err)
		}
		n.admin = append(n.admin, g)
	}
	return n, nil
}

// IsAdmin reports whether raw is on the admin bypass list.
func (n *E164Normalizer) IsAdmin(raw string) bool {
	for _, g := range n.admin {
		if g.Match(raw) {
			return true
		}
	}
	return false
}

// Normalize returns the E.164 form of raw.
func (n *E164Normalizer) Normalize(raw string) (string, error) {
	if raw == "" {
		return "", oops.Code(CodePhoneRequired).Errorf("phone number is required")
	}
	if n.IsAdmin(raw) {
		return raw, nil
	}

	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", oops.Code(CodePhoneInvalid).With("phone", raw).Wrap(err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", oops.Code(CodePhoneInvalid).With("phone", raw).Errorf("not a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Compile-time interface check.
var _ PhoneNormalizer = (*E164Normalizer)(nil)
