// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the auth stores.
// Conditional updates are serialized by a mutex, so they are atomic in the
// same sense as the PostgreSQL ones.
package memory
