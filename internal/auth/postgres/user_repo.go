// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package postgres implements auth.UserStore using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository needs.
// pgxmock.PgxPoolIface satisfies it, so unit tests run without a
// database.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements auth.UserStore using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, session_token, reset_token, created_at, updated_at`

// Create stores a new user. Email uniqueness is enforced by the
// database; a unique violation surfaces as auth.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash string) (*auth.User, error) {
	now := time.Now()
	user := &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("USER_EMAIL_TAKEN").
				With("email", email).
				Wrap(auth.ErrConflict)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return r.getBy(ctx, "id", id.String())
}

// GetByEmail retrieves a user by exact email. The comparison is
// case-sensitive, matching the stored value.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetBySessionToken retrieves the user holding the live session token.
func (r *UserRepository) GetBySessionToken(ctx context.Context, token string) (*auth.User, error) {
	return r.getBy(ctx, "session_token", token)
}

// GetByResetToken retrieves the user holding the live reset token.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*auth.User, error) {
	return r.getBy(ctx, "reset_token", token)
}

// getBy looks a user up by one of the enumerated unique columns. The
// column name is always a compile-time constant from this file, never
// caller input.
func (r *UserRepository) getBy(ctx context.Context, column, value string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column),
		value,
	)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("column", column).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+column).
			Wrap(err)
	}
	return user, nil
}

// Update applies a partial update in one UPDATE statement, so token
// overwrite and clear are atomic with any password change in the same
// call.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, update auth.UserUpdate) error {
	if update.Empty() {
		return nil
	}

	sets := []string{"updated_at = $2"}
	args := []any{id.String(), time.Now()}

	if update.PasswordHash != nil {
		args = append(args, *update.PasswordHash)
		sets = append(sets, fmt.Sprintf("password_hash = $%d", len(args)))
	}
	if update.SessionToken.Touched() {
		args = append(args, update.SessionToken.Value())
		sets = append(sets, fmt.Sprintf("session_token = $%d", len(args)))
	}
	if update.ResetToken.Touched() {
		args = append(args, update.ResetToken.Value())
		sets = append(sets, fmt.Sprintf("reset_token = $%d", len(args)))
	}

	result, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $1`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		email        string
		passwordHash string
		sessionToken *string
		resetToken   *string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&idStr, &email, &passwordHash, &sessionToken, &resetToken, &createdAt, &updatedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		SessionToken: sessionToken,
		ResetToken:   resetToken,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserRepository)(nil)
