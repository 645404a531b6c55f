// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package auth implements the credential and session core for CredGate.
//
// # Domain Types
//
// User is the persistent account record. It carries at most one live
// session token and at most one live reset token; issuing a new token
// overwrites the previous value, and consuming a reset token clears it.
// Updates to a User flow through the closed UserUpdate structure so
// only {password_hash, session_token, reset_token} can ever change.
//
// # Managers
//
// Manager types coordinate domain operations against a UserStore:
//   - Service - registration and credential verification
//   - SessionManager - session token issue, resolve, invalidate
//   - ResetTokenManager - single-use password reset tokens
//   - Gate - per-request authentication decisions (401 vs 403)
//
// Managers hold only their store handle, hasher, and token source;
// there is no package-level mutable state.
package auth
