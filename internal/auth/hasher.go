// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// TransportAlgorithm is the only accepted transport digest algorithm.
const TransportAlgorithm = "sha-256"

// DefaultHashCost is the bcrypt cost used when none is configured.
const DefaultHashCost = 10

// Password is a credential as presented by a caller: either the plaintext
// string or a transport digest computed on the originating side.
type Password struct {
	Digest    string
	Algorithm string

	raw   string
	isRaw bool
}

// RawPassword wraps a plaintext password.
func RawPassword(plain string) Password {
	return Password{raw: plain, isRaw: true}
}

// DigestPassword wraps a pre-hashed transport digest.
func DigestPassword(digest, algorithm string) Password {
	return Password{Digest: digest, Algorithm: algorithm}
}

// HashForTransport computes the transport digest of a plaintext password the
// way a client does before sending it.
func HashForTransport(plain string) Password {
	return DigestPassword(sha256Hex(plain), TransportAlgorithm)
}

// IsRaw reports whether the password was supplied as plaintext.
func (p Password) IsRaw() bool {
	return p.isRaw
}

// transportDigest returns the string fed into bcrypt.
func (p Password) transportDigest() (string, error) {
	if p.isRaw {
		if p.raw == "" {
			return "", oops.Code(CodeEmptyPassword).Errorf("password cannot be empty")
		}
		return sha256Hex(p.raw), nil
	}
	if p.Algorithm != TransportAlgorithm {
		return "", oops.Code(CodeInvalidDigestAlgorithm).
			With("algorithm", p.Algorithm).
			Errorf("invalid password hash algorithm, only '%s' is allowed", TransportAlgorithm)
	}
	if p.Digest == "" {
		return "", oops.Code(CodeEmptyPassword).Errorf("password digest cannot be empty")
	}
	return p.Digest, nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// PasswordHasher derives storage verifiers and checks passwords against them.
type PasswordHasher interface {
	// DeriveVerifier produces the bcrypt verifier of the password's transport digest.
	DeriveVerifier(password Password) (string, error)

	// Matches reports whether password corresponds to verifier.
	// Returns (false, nil) on mismatch and an error only for malformed input.
	Matches(password Password, verifier string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt over the transport digest.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's accepted
// range falls back to DefaultHashCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the bcrypt cost factor in use.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// DeriveVerifier produces the bcrypt verifier of the password's transport digest.
func (h *BcryptHasher) DeriveVerifier(password Password) (string, error) {
	digest, err := password.transportDigest()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(digest), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", oops.Code(CodePasswordTooLong).
			With("length", len(digest)).
			Errorf("password digest exceeds 72 bytes")
	}
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(hash), nil
}

// Matches reports whether password corresponds to verifier. The cost and salt
// are read from the verifier itself.
func (h *BcryptHasher) Matches(password Password, verifier string) (bool, error) {
	digest, err := password.transportDigest()
	if err != nil {
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(verifier), []byte(digest))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
