// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service orchestrates the credential and session lifecycle.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenGenerator
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenGenerator) (*Service, error) {
	return NewServiceWithLogger(users, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
// The logger never receives passwords, hashes, or tokens.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, tokens TokenGenerator, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token generator is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}, nil
}

// Register creates a new user for the given email and password.
// Returns ErrUserExists if the email is already registered. The pre-check is
// an optimization; the store's atomic uniqueness constraint is the
// enforcement point, so a racing duplicate Create surfaces the same error.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, oops.Code("AUTH_USER_EXISTS").
			With("email", email).
			Wrap(ErrUserExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "new user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The store enforces uniqueness; a lost race looks the same to the
		// caller as a pre-check hit.
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("AUTH_USER_EXISTS").
				With("email", email).
				Wrap(ErrUserExists)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// ValidLogin reports whether the credentials identify a registered user.
// An unknown email is an expected outcome, not an error.
func (s *Service) ValidLogin(ctx context.Context, email, password string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.HashedPassword)
	if err != nil {
		return false, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	return valid, nil
}

// CreateSession issues a fresh session token for the user with the given
// email, overwriting any prior token - the old token becomes invalid because
// lookup is by stored value. Returns "" without error for an unknown email;
// the caller maps that to an auth failure.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	if err := s.users.UpdateSessionID(ctx, user.ID, &token); err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "update session id").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session created", "user_id", user.ID.String())
	return token, nil
}

// UserFromSession returns the user holding the given session token, or nil
// if the token is empty or matches no user. An empty token is never looked up.
func (s *Service) UserFromSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	user, err := s.users.GetBySessionID(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_SESSION_LOOKUP_FAILED").
			With("operation", "get user by session id").
			Wrap(err)
	}
	return user, nil
}

// DestroySession clears the session token for the given user. A zero ID or
// unknown user is a no-op: absence of a session is not exceptional, and
// logout is idempotent. The user record itself is never deleted.
func (s *Service) DestroySession(ctx context.Context, id ulid.ULID) error {
	if id.Compare(ulid.ULID{}) == 0 {
		return nil
	}

	if err := s.users.UpdateSessionID(ctx, id, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_SESSION_DESTROY_FAILED").
			With("operation", "clear session id").
			With("user_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session destroyed", "user_id", id.String())
	return nil
}

// ResetPasswordToken issues a password-reset token for the user with the
// given email. Returns ErrUserNotFound for an unknown email. A second call
// while a reset is pending simply replaces the outstanding token.
func (s *Service) ResetPasswordToken(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(ErrUserNotFound)
		}
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	if err := s.users.UpdateResetToken(ctx, user.ID, &token); err != nil {
		return "", oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "update reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "reset token issued", "user_id", user.ID.String())
	return token, nil
}

// UpdatePassword sets a new password for the user holding the given reset
// token. The token is cleared in the same store update that writes the new
// hash, so it is single-use. Returns ErrInvalidResetToken when no user holds
// the token; empty arguments are a no-op.
func (s *Service) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return nil
	}

	user, err := s.users.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_RESET_TOKEN_INVALID").Wrap(ErrInvalidResetToken)
		}
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "get user by reset token").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "update password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password updated", "user_id", user.ID.String())
	return nil
}
