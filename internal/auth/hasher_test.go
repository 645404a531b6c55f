// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("empty password is accepted", func(t *testing.T) {
		hash, err := hasher.Hash("")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("", hash))
		assert.False(t, hasher.Verify("notempty", hash))
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("round trip across inputs", func(t *testing.T) {
		for _, password := range []string{"a", "s3cr3t", "pa:ss:wd", "héllo wörld", strings.Repeat("x", 200)} {
			hash, err := hasher.Hash(password)
			require.NoError(t, err)
			assert.True(t, hasher.Verify(password, hash), "password %q should verify", password)
		}
	})

	t.Run("malformed hashes verify false, never panic", func(t *testing.T) {
		malformed := []string{
			"",
			"not-a-valid-hash",
			"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",      // wrong algorithm
			"$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA",      // bad version
			"$argon2id$v=19$invalid$c2FsdA$aGFzaA",             // bad parameters
			"$argon2id$v=19$m=65536,t=1,p=4$!!!bad!!!$aGFzaA",  // bad salt base64
			"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!bad!!!",  // bad hash base64
			"$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA",   // threads exceeds uint8
			"$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA",     // zero threads
			"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA$x$y", // too many segments
		}
		for _, hash := range malformed {
			assert.False(t, hasher.Verify("password", hash), "hash %q should verify false", hash)
		}
	})
}
