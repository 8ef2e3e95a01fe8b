// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// DefaultPIIFields are the field names redacted when no explicit list is
// configured.
var DefaultPIIFields = []string{"name", "email", "phone", "ssn", "password"}

// DefaultRedaction is the marker substituted for redacted values.
const DefaultRedaction = "***"

// DefaultSeparator is the field delimiter assumed in delimited log lines.
const DefaultSeparator = ";"

// Filter rewrites each "field=value<separator>" occurrence in message to
// "field=<redaction><separator>" for every field in fields. It is a pure
// text transform with no state.
func Filter(fields []string, redaction, message, separator string) string {
	for _, field := range fields {
		pattern := regexp.MustCompile(regexp.QuoteMeta(field) + `=.*?` + regexp.QuoteMeta(separator))
		message = pattern.ReplaceAllString(message, field+"="+redaction+separator)
	}
	return message
}

// redactHandler wraps a slog.Handler to strip PII from records before they
// reach the sink. Messages get the delimited-field rewrite; attrs whose key
// matches a sensitive field have their value replaced wholesale.
type redactHandler struct {
	handler   slog.Handler
	fields    []string
	redaction string
	separator string
}

// NewRedactingHandler wraps inner so that sensitive fields never reach the
// sink. Empty fields, redaction, or separator fall back to the defaults.
func NewRedactingHandler(inner slog.Handler, fields []string, redaction, separator string) slog.Handler {
	if len(fields) == 0 {
		fields = DefaultPIIFields
	}
	if redaction == "" {
		redaction = DefaultRedaction
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return &redactHandler{
		handler:   inner,
		fields:    fields,
		redaction: redaction,
		separator: separator,
	}
}

// Handle rewrites the record before delegating to the wrapped handler.
func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, Filter(h.fields, h.redaction, r.Message, h.separator), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, clean)
}

func (h *redactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		redacted := make([]slog.Attr, len(members))
		for i, m := range members {
			redacted[i] = h.redactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}
	for _, field := range h.fields {
		if strings.EqualFold(a.Key, field) {
			return slog.String(a.Key, h.redaction)
		}
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, Filter(h.fields, h.redaction, a.Value.String(), h.separator))
	}
	return a
}

// Enabled returns true if the level is enabled.
func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &redactHandler{
		handler:   h.handler.WithAttrs(redacted),
		fields:    h.fields,
		redaction: h.redaction,
		separator: h.separator,
	}
}

// WithGroup returns a new handler with the given group.
func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{
		handler:   h.handler.WithGroup(name),
		fields:    h.fields,
		redaction: h.redaction,
		separator: h.separator,
	}
}
