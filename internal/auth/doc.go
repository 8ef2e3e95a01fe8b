// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth implements the credential and session lifecycle for Gatehouse.
//
// # Domain Types
//
// User is the single persisted record: identity, credential, and transient
// auth state (session token, pending reset token). Users are created through
// Service.Register; repository implementations receive pre-validated records.
//
// # Services
//
// Service orchestrates registration, login validation, session issuance and
// teardown, and the password-reset flow. It holds no state of its own - every
// read and mutation goes through the injected UserRepository. Construct one
// Service at process start with NewService and inject it into the transport
// layer.
package auth
