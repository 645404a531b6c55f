// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth"
)

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func userRow(id ulid.ULID, email string, sessionToken, resetToken *string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "email", "password_hash", "session_token", "reset_token", "created_at", "updated_at",
	}).AddRow(id.String(), email, "$argon2id$hash", sessionToken, resetToken, now, now)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts and returns the new user", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(pgxmock.AnyArg(), "alice@example.com", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		user, err := repo.Create(ctx, "alice@example.com", "hash")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.Nil(t, user.SessionToken)
		assert.Nil(t, user.ResetToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(pgxmock.AnyArg(), "alice@example.com", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		_, err := repo.Create(ctx, "alice@example.com", "hash")
		assert.ErrorIs(t, err, auth.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(pgxmock.AnyArg(), "alice@example.com", "hash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.Create(ctx, "alice@example.com", "hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrConflict)
	})
}

func TestUserRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	tests := []struct {
		name   string
		column string
		lookup func(*UserRepository) (*auth.User, error)
	}{
		{"by email", "email", func(r *UserRepository) (*auth.User, error) {
			return r.GetByEmail(ctx, "alice@example.com")
		}},
		{"by session token", "session_token", func(r *UserRepository) (*auth.User, error) {
			return r.GetBySessionToken(ctx, "tok")
		}},
		{"by reset token", "reset_token", func(r *UserRepository) (*auth.User, error) {
			return r.GetByResetToken(ctx, "tok")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" hit", func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(`SELECT .+ FROM users WHERE ` + tt.column).
				WithArgs(pgxmock.AnyArg()).
				WillReturnRows(userRow(id, "alice@example.com", nil, nil))

			user, err := tt.lookup(repo)
			require.NoError(t, err)
			assert.Equal(t, id, user.ID)
			assert.Equal(t, "alice@example.com", user.Email)
		})

		t.Run(tt.name+" miss", func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(`SELECT .+ FROM users WHERE ` + tt.column).
				WithArgs(pgxmock.AnyArg()).
				WillReturnError(pgx.ErrNoRows)

			_, err := tt.lookup(repo)
			assert.ErrorIs(t, err, auth.ErrNotFound)
		})
	}

	t.Run("by id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
			WithArgs(id.String()).
			WillReturnRows(userRow(id, "alice@example.com", nil, nil))

		user, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
	})

	t.Run("corrupt stored id fails the scan", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()
		rows := pgxmock.NewRows([]string{
			"id", "email", "password_hash", "session_token", "reset_token", "created_at", "updated_at",
		}).AddRow("not-a-ulid", "alice@example.com", "hash", nil, nil, now, now)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnRows(rows)

		_, err := repo.GetByEmail(ctx, "alice@example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("sets session token", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET updated_at = $2, session_token = $3 WHERE id = $1`)).
			WithArgs(id.String(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, id, auth.UserUpdate{SessionToken: auth.SetToken("tok")})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consume writes hash and clears token in one statement", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET updated_at = $2, password_hash = $3, reset_token = $4 WHERE id = $1`)).
			WithArgs(id.String(), pgxmock.AnyArg(), "newhash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		newHash := "newhash"
		err := repo.Update(ctx, id, auth.UserUpdate{
			PasswordHash: &newHash,
			ResetToken:   auth.ClearToken(),
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET`)).
			WithArgs(id.String(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, id, auth.UserUpdate{SessionToken: auth.ClearToken()})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("empty update touches nothing", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		err := repo.Update(ctx, id, auth.UserUpdate{})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
