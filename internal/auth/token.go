// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy drawn per opaque token. 32 bytes hex-encode
// to 64 characters, well above the 122-bit unguessability floor.
const TokenBytes = 32

// TokenSource produces opaque session and reset tokens. Tokens are
// meaningful only for equality lookup against stored state.
type TokenSource interface {
	// NewToken returns a fresh unpredictable token.
	NewToken() (string, error)
}

// CryptoTokenSource draws tokens from crypto/rand. A general-purpose
// unique-id generator is not a substitute: uniqueness does not imply
// unpredictability.
type CryptoTokenSource struct{}

// NewToken returns TokenBytes of randomness, hex-encoded.
func (CryptoTokenSource) NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// Compile-time interface check.
var _ TokenSource = CryptoTokenSource{}
