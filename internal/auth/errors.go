// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Store-level sentinels. Repository implementations wrap these with
// oops codes so callers can use errors.Is while logs keep context.
var (
	// ErrNotFound is returned when no record matches a lookup key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned by UserRepository.Create when the email
	// is already present. The service translates it to ErrUserExists and
	// never leaks it past the store boundary.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// Service-level sentinels, surfaced to transport-layer callers.
var (
	// ErrUserExists is returned by Register for an already-registered email.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned by ResetPasswordToken for an unknown email.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidResetToken is returned by UpdatePassword when no user holds
	// the presented reset token.
	ErrInvalidResetToken = errors.New("invalid reset token")
)
