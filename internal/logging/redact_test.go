// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name      string
		fields    []string
		redaction string
		message   string
		separator string
		want      string
	}{
		{
			name:      "single field",
			fields:    []string{"password"},
			redaction: "xxx",
			message:   "name=bob;password=secret;",
			separator: ";",
			want:      "name=bob;password=xxx;",
		},
		{
			name:      "multiple fields",
			fields:    []string{"email", "ssn"},
			redaction: "***",
			message:   "email=a@x.com;ssn=123-45-6789;ip=1.2.3.4;",
			separator: ";",
			want:      "email=***;ssn=***;ip=1.2.3.4;",
		},
		{
			name:      "field absent leaves message unchanged",
			fields:    []string{"phone"},
			redaction: "***",
			message:   "name=bob;email=a@x.com;",
			separator: ";",
			want:      "name=bob;email=a@x.com;",
		},
		{
			name:      "alternate separator",
			fields:    []string{"password"},
			redaction: "***",
			message:   "user=bob&password=hunter2&action=login&",
			separator: "&",
			want:      "user=bob&password=***&action=login&",
		},
		{
			name:      "value containing regex metacharacters",
			fields:    []string{"email"},
			redaction: "***",
			message:   "email=a+b@x.com;level=info;",
			separator: ";",
			want:      "email=***;level=info;",
		},
		{
			name:      "repeated field",
			fields:    []string{"password"},
			redaction: "***",
			message:   "password=one;password=two;",
			separator: ";",
			want:      "password=***;password=***;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.fields, tt.redaction, tt.message, tt.separator)
			assert.Equal(t, tt.want, got)
		})
	}
}

// logLine runs one record through a redacting JSON handler and decodes the
// emitted line.
func logLine(t *testing.T, fields []string, log func(logger *slog.Logger)) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	handler := NewRedactingHandler(slog.NewJSONHandler(&buf, nil), fields, "", "")
	log(slog.New(handler))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestRedactingHandler_Message(t *testing.T) {
	entry := logLine(t, nil, func(logger *slog.Logger) {
		logger.Info("request: email=a@x.com;password=secret;path=/users;")
	})

	assert.Equal(t, "request: email=***;password=***;path=/users;", entry["msg"])
}

func TestRedactingHandler_Attrs(t *testing.T) {
	t.Run("sensitive key replaced wholesale", func(t *testing.T) {
		entry := logLine(t, nil, func(logger *slog.Logger) {
			logger.Info("login", "email", "a@x.com", "route", "/sessions")
		})

		assert.Equal(t, "***", entry["email"])
		assert.Equal(t, "/sessions", entry["route"])
	})

	t.Run("key match is case-insensitive", func(t *testing.T) {
		entry := logLine(t, nil, func(logger *slog.Logger) {
			logger.Info("login", "Email", "a@x.com")
		})

		assert.Equal(t, "***", entry["Email"])
	})

	t.Run("string value with embedded fields filtered", func(t *testing.T) {
		entry := logLine(t, nil, func(logger *slog.Logger) {
			logger.Info("event", "detail", "password=hunter2;ok=true;")
		})

		assert.Equal(t, "password=***;ok=true;", entry["detail"])
	})

	t.Run("group members redacted recursively", func(t *testing.T) {
		entry := logLine(t, nil, func(logger *slog.Logger) {
			logger.Info("event", slog.Group("user", slog.String("email", "a@x.com"), slog.String("id", "u1")))
		})

		group, ok := entry["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "***", group["email"])
		assert.Equal(t, "u1", group["id"])
	})

	t.Run("custom field list overrides defaults", func(t *testing.T) {
		entry := logLine(t, []string{"token"}, func(logger *slog.Logger) {
			logger.Info("event", "token", "abc123", "email", "a@x.com")
		})

		assert.Equal(t, "***", entry["token"])
		// email is not in the custom list, so it passes through.
		assert.Equal(t, "a@x.com", entry["email"])
	})
}

func TestRedactingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewRedactingHandler(slog.NewJSONHandler(&buf, nil), nil, "", "")
	logger := slog.New(handler).With("email", "a@x.com")

	logger.Info("event")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***", entry["email"])
}

func TestRedactingHandler_Enabled(t *testing.T) {
	inner := slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := NewRedactingHandler(inner, nil, "", "")

	assert.False(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
}
