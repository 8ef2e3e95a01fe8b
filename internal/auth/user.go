// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// emailRegex is a pragmatic shape check, not RFC 5322 validation.
// Uniqueness and case handling are the store's concern.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User is an identity plus credential plus transient auth state record.
//
// SessionID is present while the user holds an active session; at most one
// session per user - a new login overwrites the previous token. ResetToken is
// present only between a reset request and the next successful password
// update, and is cleared in the same store call that writes the new hash.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword string
	SessionID      *string
	ResetToken     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a validated User with a fresh ID and no auth state.
func NewUser(email, hashedPassword string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if hashedPassword == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("hashed password cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// HasSession reports whether the user currently holds an active session.
func (u *User) HasSession() bool {
	return u.SessionID != nil && *u.SessionID != ""
}

// ValidateEmail validates an email address shape.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("email is not a valid address")
	}
	return nil
}

// UserRepository manages user persistence. It is the single owner of the
// user collection; the service never mutates a User field directly.
//
// Each update method is atomic per call: concurrent readers never observe a
// partially applied update.
type UserRepository interface {
	// Create stores a new user. The uniqueness check on email must happen
	// under the same atomic operation as the insert; a duplicate returns
	// ErrDuplicateEmail even when two creates race.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound on a miss.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-sensitive as stored).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetBySessionID retrieves the user holding the given session token.
	GetBySessionID(ctx context.Context, sessionID string) (*User, error)

	// GetByResetToken retrieves the user holding the given reset token.
	GetByResetToken(ctx context.Context, token string) (*User, error)

	// UpdateSessionID sets or clears (nil) the session token for a user.
	UpdateSessionID(ctx context.Context, id ulid.ULID, sessionID *string) error

	// UpdateResetToken sets or clears (nil) the reset token for a user.
	UpdateResetToken(ctx context.Context, id ulid.ULID, token *string) error

	// UpdatePassword writes a new password hash and clears any outstanding
	// reset token in the same atomic update, so a consumed token can never
	// be replayed against the old or new credential.
	UpdatePassword(ctx context.Context, id ulid.ULID, hashedPassword string) error
}
