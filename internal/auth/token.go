// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of a generated token: 32 bytes = 64 hex chars.
const TokenBytes = 32

// TokenGenerator produces unguessable opaque identifiers. The same generator
// serves both session and reset tokens; uniqueness is probabilistic and
// overwhelming by construction.
type TokenGenerator interface {
	// Generate returns a fresh opaque token.
	Generate() (string, error)
}

// RandomTokenGenerator implements TokenGenerator over crypto/rand.
// It holds no state.
type RandomTokenGenerator struct{}

// NewRandomTokenGenerator creates a new RandomTokenGenerator.
func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{}
}

// Generate returns a hex-encoded token drawn from the secure random source.
func (g *RandomTokenGenerator) Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// Compile-time interface check.
var _ TokenGenerator = (*RandomTokenGenerator)(nil)
