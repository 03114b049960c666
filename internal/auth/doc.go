// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides phone number and password authentication.
//
// # Domain Types
//
// Domain types (Account, LoginToken) should be created using their
// constructors:
//   - NewAccount - creates an unverified Account with an optional password hash
//   - NewLoginToken - creates a LoginToken with validated account and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Components
//
// Each component is usable on its own:
//   - BcryptHasher - transport digest plus bcrypt storage verifier
//   - Issuer - one-time code issuance with two-tier rate limiting
//   - Validator - code consumption, with optional master code
//   - Authenticator - password login by account id or phone
//   - Coordinator - session token invalidation around credential changes
//
// Service wires them together and exposes the caller-facing operations.
//
// # Errors
//
// Every error carries an oops code. KindOf maps the code to a Kind; codes not
// listed in this package are KindInternal. Stores signal a duplicate phone
// number with a KindConflict error and a missing record with ErrNotFound.
package auth
