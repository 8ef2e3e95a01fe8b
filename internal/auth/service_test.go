// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/mocks"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func newService(t *testing.T) (*auth.Service, *mocks.MockUserRepository, *mocks.MockPasswordHasher, *mocks.MockTokenGenerator) {
	t.Helper()
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenGenerator(t)
	svc, err := auth.NewService(users, hasher, tokens)
	require.NoError(t, err)
	return svc, users, hasher, tokens
}

func notFoundErr() error {
	return auth.ErrNotFound
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.PasswordHasher
		tokens      auth.TokenGenerator
		expectError string
	}{
		{
			name:        "nil user repository",
			users:       nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenGenerator(t),
			expectError: "user repository is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			hasher:      nil,
			tokens:      mocks.NewMockTokenGenerator(t),
			expectError: "password hasher is required",
		},
		{
			name:        "nil token generator",
			users:       mocks.NewMockUserRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      nil,
			expectError: "token generator is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewServiceWithLogger_NilLogger(t *testing.T) {
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenGenerator(t)

	svc, err := auth.NewServiceWithLogger(users, hasher, tokens, nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user for new email", func(t *testing.T) {
		svc, users, hasher, _ := newService(t)

		users.On("GetByEmail", ctx, "a@x.com").Return(nil, notFoundErr())
		hasher.On("Hash", "pw1").Return("$argon2id$v=19$m=65536,t=1,p=4$salt$hash", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		user, err := svc.Register(ctx, "a@x.com", "pw1")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", user.Email)
		assert.NotEqual(t, "pw1", user.HashedPassword)
		assert.Nil(t, user.SessionID)
		assert.Nil(t, user.ResetToken)
	})

	t.Run("fails for existing email", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		existing := &auth.User{ID: ulid.Make(), Email: "a@x.com", HashedPassword: "hash"}
		users.On("GetByEmail", ctx, "a@x.com").Return(existing, nil)

		user, err := svc.Register(ctx, "a@x.com", "pw2")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrUserExists)
		errutil.AssertErrorCode(t, err, "AUTH_USER_EXISTS")
	})

	t.Run("translates store duplicate into ErrUserExists", func(t *testing.T) {
		svc, users, hasher, _ := newService(t)

		// Pre-check misses, then the atomic create loses the race.
		users.On("GetByEmail", ctx, "a@x.com").Return(nil, notFoundErr())
		hasher.On("Hash", "pw1").Return("hashed", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.ErrDuplicateEmail)

		user, err := svc.Register(ctx, "a@x.com", "pw1")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})

	t.Run("propagates store failure", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		users.On("GetByEmail", ctx, "a@x.com").Return(nil, errors.New("connection refused"))

		_, err := svc.Register(ctx, "a@x.com", "pw1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrUserExists)
	})
}

func TestService_ValidLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("true for matching credentials", func(t *testing.T) {
		svc, users, hasher, _ := newService(t)

		user := &auth.User{ID: ulid.Make(), Email: "a@x.com", HashedPassword: "stored-hash"}
		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		hasher.On("Verify", "pw1", "stored-hash").Return(true, nil)

		valid, err := svc.ValidLogin(ctx, "a@x.com", "pw1")
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("false for wrong password", func(t *testing.T) {
		svc, users, hasher, _ := newService(t)

		user := &auth.User{ID: ulid.Make(), Email: "a@x.com", HashedPassword: "stored-hash"}
		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		hasher.On("Verify", "pw2", "stored-hash").Return(false, nil)

		valid, err := svc.ValidLogin(ctx, "a@x.com", "pw2")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("false without error for unknown email", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		users.On("GetByEmail", ctx, "nobody@x.com").Return(nil, notFoundErr())

		valid, err := svc.ValidLogin(ctx, "nobody@x.com", "pw1")
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("issues and stores a token", func(t *testing.T) {
		svc, users, _, tokens := newService(t)

		userID := ulid.Make()
		user := &auth.User{ID: userID, Email: "a@x.com", HashedPassword: "hash"}
		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		tokens.On("Generate").Return("fresh-token", nil)
		users.On("UpdateSessionID", ctx, userID, mock.MatchedBy(func(s *string) bool {
			return s != nil && *s == "fresh-token"
		})).Return(nil)

		token, err := svc.CreateSession(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
	})

	t.Run("empty token without error for unknown email", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		users.On("GetByEmail", ctx, "nobody@x.com").Return(nil, notFoundErr())

		token, err := svc.CreateSession(ctx, "nobody@x.com")
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func TestService_UserFromSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns holder of the token", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		user := &auth.User{ID: ulid.Make(), Email: "a@x.com", HashedPassword: "hash"}
		users.On("GetBySessionID", ctx, "tok").Return(user, nil)

		got, err := svc.UserFromSession(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("nil for empty token without lookup", func(t *testing.T) {
		svc, _, _, _ := newService(t)

		got, err := svc.UserFromSession(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("nil for unknown token", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		users.On("GetBySessionID", ctx, "stale").Return(nil, notFoundErr())

		got, err := svc.UserFromSession(ctx, "stale")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestService_DestroySession(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the session token", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		userID := ulid.Make()
		users.On("UpdateSessionID", ctx, userID, (*string)(nil)).Return(nil)

		require.NoError(t, svc.DestroySession(ctx, userID))
	})

	t.Run("no-op for zero id", func(t *testing.T) {
		svc, _, _, _ := newService(t)

		require.NoError(t, svc.DestroySession(ctx, ulid.ULID{}))
	})

	t.Run("no-op for unknown user", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		userID := ulid.Make()
		users.On("UpdateSessionID", ctx, userID, (*string)(nil)).Return(notFoundErr())

		require.NoError(t, svc.DestroySession(ctx, userID))
	})
}

func TestService_ResetPasswordToken(t *testing.T) {
	ctx := context.Background()

	t.Run("issues and stores a reset token", func(t *testing.T) {
		svc, users, _, tokens := newService(t)

		userID := ulid.Make()
		user := &auth.User{ID: userID, Email: "a@x.com", HashedPassword: "hash"}
		users.On("GetByEmail", ctx, "a@x.com").Return(user, nil)
		tokens.On("Generate").Return("reset-token", nil)
		users.On("UpdateResetToken", ctx, userID, mock.MatchedBy(func(s *string) bool {
			return s != nil && *s == "reset-token"
		})).Return(nil)

		token, err := svc.ResetPasswordToken(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "reset-token", token)
	})

	t.Run("surfaces unknown email", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		users.On("GetByEmail", ctx, "nobody@x.com").Return(nil, notFoundErr())

		token, err := svc.ResetPasswordToken(ctx, "nobody@x.com")
		require.Error(t, err)
		assert.Empty(t, token)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
		errutil.AssertErrorCode(t, err, "AUTH_USER_NOT_FOUND")
	})
}

func TestService_UpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("writes new hash for valid token", func(t *testing.T) {
		svc, users, hasher, _ := newService(t)

		userID := ulid.Make()
		token := "reset-token"
		user := &auth.User{ID: userID, Email: "a@x.com", HashedPassword: "old", ResetToken: &token}
		users.On("GetByResetToken", ctx, token).Return(user, nil)
		hasher.On("Hash", "newpw").Return("new-hash", nil)
		users.On("UpdatePassword", ctx, userID, "new-hash").Return(nil)

		require.NoError(t, svc.UpdatePassword(ctx, token, "newpw"))
	})

	t.Run("fails for unknown token", func(t *testing.T) {
		svc, users, _, _ := newService(t)

		users.On("GetByResetToken", ctx, "bogus").Return(nil, notFoundErr())

		err := svc.UpdatePassword(ctx, "bogus", "newpw")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
		errutil.AssertErrorCode(t, err, "AUTH_RESET_TOKEN_INVALID")
	})

	t.Run("no-op for empty arguments", func(t *testing.T) {
		svc, _, _, _ := newService(t)

		require.NoError(t, svc.UpdatePassword(ctx, "", "newpw"))
		require.NoError(t, svc.UpdatePassword(ctx, "token", ""))
	})
}

func TestService_LoggerNeverSeesSecrets(t *testing.T) {
	ctx := context.Background()

	var records []slog.Record
	logger := slog.New(recordingHandler{records: &records})

	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenGenerator(t)
	svc, err := auth.NewServiceWithLogger(users, hasher, tokens, logger)
	require.NoError(t, err)

	users.On("GetByEmail", ctx, "a@x.com").Return(nil, notFoundErr())
	hasher.On("Hash", "hunter2").Return("hashed-value", nil)
	users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

	_, err = svc.Register(ctx, "a@x.com", "hunter2")
	require.NoError(t, err)

	for _, r := range records {
		assert.NotContains(t, r.Message, "hunter2")
		r.Attrs(func(a slog.Attr) bool {
			assert.NotContains(t, a.Value.String(), "hunter2")
			assert.NotContains(t, a.Value.String(), "hashed-value")
			return true
		})
	}
}

// recordingHandler captures records for assertions.
type recordingHandler struct {
	records *[]slog.Record
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r)
	return nil
}
func (h recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordingHandler) WithGroup(string) slog.Handler      { return h }
