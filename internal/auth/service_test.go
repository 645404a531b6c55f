// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/authtest"
)

func TestNewService_NilDependencies(t *testing.T) {
	svc, err := auth.NewService(nil, auth.NewArgon2idHasher())
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "user store is required")

	svc, err = auth.NewService(authtest.NewMemoryStore(), nil)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "password hasher is required")
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		store := authtest.NewMemoryStore()
		hasher := auth.NewArgon2idHasher()
		svc, err := auth.NewService(store, hasher)
		require.NoError(t, err)

		user, err := svc.Register(ctx, "alice@example.com", "s3cr3t")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.NotEqual(t, "s3cr3t", user.PasswordHash, "plaintext must never reach the store")
		assert.True(t, hasher.Verify("s3cr3t", user.PasswordHash))
		assert.Nil(t, user.SessionToken)
		assert.Nil(t, user.ResetToken)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc, err := auth.NewService(authtest.NewMemoryStore(), auth.NewArgon2idHasher())
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice@example.com", "one")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice@example.com", "two")
		assert.ErrorIs(t, err, auth.ErrConflict)
	})

	t.Run("empty email rejected", func(t *testing.T) {
		svc, err := auth.NewService(authtest.NewMemoryStore(), auth.NewArgon2idHasher())
		require.NoError(t, err)

		_, err = svc.Register(ctx, "", "pw")
		assert.Error(t, err)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()

	newService := func(t *testing.T) *auth.Service {
		t.Helper()
		svc, err := auth.NewService(authtest.NewMemoryStore(), auth.NewArgon2idHasher())
		require.NoError(t, err)
		_, err = svc.Register(ctx, "alice@example.com", "s3cr3t")
		require.NoError(t, err)
		return svc
	}

	t.Run("correct credentials resolve", func(t *testing.T) {
		svc := newService(t)

		user, err := svc.Authenticate(ctx, "alice@example.com", "s3cr3t")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("wrong password fails the same as unknown email", func(t *testing.T) {
		svc := newService(t)

		_, wrongPW := svc.Authenticate(ctx, "alice@example.com", "wrong")
		_, unknown := svc.Authenticate(ctx, "nobody@example.com", "s3cr3t")

		assert.ErrorIs(t, wrongPW, auth.ErrNotFound)
		assert.ErrorIs(t, unknown, auth.ErrNotFound)
	})

	t.Run("email lookup is case-sensitive as stored", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.Authenticate(ctx, "ALICE@example.com", "s3cr3t")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
