// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory implements an in-memory auth.UserRepository.
//
// It serves tests and dev mode; the store behind auth.UserRepository is
// swappable and the postgres backend is the durable one.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// UserRepository implements auth.UserRepository over a mutex-guarded map.
// The mutex makes every call atomic as a whole, matching the per-call
// atomicity the interface requires.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]*auth.User
	email map[string]ulid.ULID
}

// NewUserRepository creates an empty in-memory UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[ulid.ULID]*auth.User),
		email: make(map[string]ulid.ULID),
	}
}

// Create stores a new user. The email index is checked and written under the
// same lock as the insert, so concurrent duplicate registrations cannot both
// succeed.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.email[user.Email]; ok {
		return oops.Code("USER_DUPLICATE_EMAIL").
			With("email", user.Email).
			Wrap(auth.ErrDuplicateEmail)
	}

	stored := *user
	r.users[user.ID] = &stored
	r.email[user.Email] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return copyUser(user), nil
}

// GetByEmail retrieves a user by email (case-sensitive as stored).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.email[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return copyUser(r.users[id]), nil
}

// GetBySessionID retrieves the user holding the given session token.
func (r *UserRepository) GetBySessionID(_ context.Context, sessionID string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.SessionID != nil && *user.SessionID == sessionID {
			return copyUser(user), nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// GetByResetToken retrieves the user holding the given reset token.
func (r *UserRepository) GetByResetToken(_ context.Context, token string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ResetToken != nil && *user.ResetToken == token {
			return copyUser(user), nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// UpdateSessionID sets or clears the session token for a user.
func (r *UserRepository) UpdateSessionID(_ context.Context, id ulid.ULID, sessionID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	user.SessionID = copyString(sessionID)
	user.UpdatedAt = time.Now()
	return nil
}

// UpdateResetToken sets or clears the reset token for a user.
func (r *UserRepository) UpdateResetToken(_ context.Context, id ulid.ULID, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	user.ResetToken = copyString(token)
	user.UpdatedAt = time.Now()
	return nil
}

// UpdatePassword writes the new hash and clears the reset token under one
// lock acquisition, so the two changes are visible together or not at all.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	user.HashedPassword = hashedPassword
	user.ResetToken = nil
	user.UpdatedAt = time.Now()
	return nil
}

// copyUser returns a defensive copy so callers never alias stored records.
func copyUser(u *auth.User) *auth.User {
	c := *u
	c.SessionID = copyString(u.SessionID)
	c.ResetToken = copyString(u.ResetToken)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
