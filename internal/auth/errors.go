// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/phoneauth/pkg/errutil"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Kind classifies an error by how a caller should react to it.
type Kind string

// Error kinds.
const (
	// KindValidation is malformed or missing input. Not retryable as-is.
	KindValidation Kind = "validation"
	// KindNotFound means no matching account or phone.
	KindNotFound Kind = "not_found"
	// KindRateLimit carries a retry-after duration; see RetryAfter.
	KindRateLimit Kind = "rate_limit"
	// KindAuth is a wrong password or code, or an unauthenticated caller.
	KindAuth Kind = "auth"
	// KindConflict is a duplicate phone number.
	KindConflict Kind = "conflict"
	// KindInternal is a store or transport failure. Safe to retry.
	KindInternal Kind = "internal"
)

// Error codes with a kind other than KindInternal. Any code not listed here,
// or any error that is not an oops error, is internal.
const (
	CodeEmptyPassword            = "AUTH_EMPTY_PASSWORD"
	CodeInvalidDigestAlgorithm   = "AUTH_INVALID_DIGEST_ALGORITHM"
	CodePasswordTooLong          = "AUTH_PASSWORD_TOO_LONG"
	CodeInvalidSelector          = "AUTH_INVALID_SELECTOR"
	CodePhoneRequired            = "PHONE_REQUIRED"
	CodePhoneInvalid             = "PHONE_INVALID"
	CodeCodeRequired             = "VERIFY_CODE_REQUIRED"
	CodeAccountNotFound          = "ACCOUNT_NOT_FOUND"
	CodePhoneNotFound            = "VERIFY_PHONE_NOT_FOUND"
	CodeTooOften                 = "VERIFY_TOO_OFTEN"
	CodeTooManyRetries           = "VERIFY_TOO_MANY_RETRIES"
	CodeUserNotFound             = "AUTH_USER_NOT_FOUND"
	CodeNoPassword               = "AUTH_NO_PASSWORD"
	CodeIncorrectPassword        = "AUTH_INCORRECT_PASSWORD"
	CodeNotLoggedIn              = "AUTH_NOT_LOGGED_IN"
	CodePasswordChangedMeanwhile = "AUTH_PASSWORD_CHANGED_CONCURRENTLY"
	CodeInvalidCode              = "VERIFY_INVALID_CODE"
	CodeInvalidPhone             = "VERIFY_INVALID_PHONE"
	CodeSessionInvalid           = "SESSION_INVALID"
	CodeSessionExpired           = "SESSION_EXPIRED"
	CodePhoneConflict            = "ACCOUNT_PHONE_CONFLICT"
)

var codeKinds = map[string]Kind{
	CodeEmptyPassword:            KindValidation,
	CodeInvalidDigestAlgorithm:   KindValidation,
	CodePasswordTooLong:          KindValidation,
	CodeInvalidSelector:          KindValidation,
	CodePhoneRequired:            KindValidation,
	CodePhoneInvalid:             KindValidation,
	CodeCodeRequired:             KindValidation,
	CodeAccountNotFound:          KindNotFound,
	CodePhoneNotFound:            KindNotFound,
	CodeTooOften:                 KindRateLimit,
	CodeTooManyRetries:           KindRateLimit,
	CodeUserNotFound:             KindAuth,
	CodeNoPassword:               KindAuth,
	CodeIncorrectPassword:        KindAuth,
	CodeNotLoggedIn:              KindAuth,
	CodePasswordChangedMeanwhile: KindAuth,
	CodeInvalidCode:              KindAuth,
	CodeInvalidPhone:             KindAuth,
	CodeSessionInvalid:           KindAuth,
	CodeSessionExpired:           KindAuth,
	CodePhoneConflict:            KindConflict,
}

// publicMessages are the caller-visible messages per code. The three login
// failures stay distinct; unifying them is a matter of editing this table.
var publicMessages = map[string]string{
	CodeUserNotFound:             "user not found",
	CodeNoPassword:               "user has no password set",
	CodeIncorrectPassword:        "incorrect password",
	CodeNotLoggedIn:              "must be logged in",
	CodePasswordChangedMeanwhile: "password was changed by another request",
	CodeInvalidCode:              "not a valid code",
	CodeInvalidPhone:             "invalid phone",
	CodePhoneNotFound:            "not a valid phone",
	CodePhoneRequired:            "not a valid phone",
	CodePhoneInvalid:             "not a valid phone",
	CodePhoneConflict:            "phone number already exists",
	CodeSessionInvalid:           "invalid session token",
	CodeSessionExpired:           "session has expired",
}

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if kind, ok := codeKinds[errutil.Code(err)]; ok {
		return kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RetryAfter returns how long a rate-limited caller must wait.
// The second result is false for errors that are not KindRateLimit.
func RetryAfter(err error) (time.Duration, bool) {
	if !IsKind(err, KindRateLimit) {
		return 0, false
	}
	oopsErr, _ := oops.AsOops(err)
	d, ok := oopsErr.Context()["retry_after"].(time.Duration)
	return d, ok
}

// PublicMessage returns the message safe to show the end user.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	code := errutil.Code(err)
	if msg, ok := publicMessages[code]; ok {
		return msg
	}
	switch KindOf(err) {
	case KindValidation, KindRateLimit:
		oopsErr, _ := oops.AsOops(err)
		return oopsErr.Error()
	case KindInternal:
		return "internal error"
	default:
		return string(KindOf(err))
	}
}

// wrapInternal returns err unchanged when it already has a caller-facing kind,
// and wraps it with code otherwise.
func wrapInternal(err error, code, operation string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	return oops.Code(code).With("operation", operation).Wrap(err)
}
