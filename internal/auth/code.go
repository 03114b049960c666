// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"

	"github.com/samber/oops"
)

var nineDigits = big.NewInt(9)

// GenerateCode returns a numeric code of length digits, each uniform in 1-9.
// Zero is never used so codes have no leading-zero ambiguity.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, nineDigits)
		if err != nil {
			return "", oops.Code("VERIFY_CODE_GENERATE_FAILED").
				With("operation", "crypto/rand.Int").
				Wrap(err)
		}
		b.WriteByte(byte('1' + n.Int64()))
	}
	return b.String(), nil
}

// codesEqual compares two codes in constant time.
func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
