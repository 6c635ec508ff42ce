// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/authledger/authledger/internal/auth"
)

// UserRepository implements auth.CredentialStore.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// InsertUser stores a new user. The primary key decides duplicates, so two
// concurrent registrations of one name produce exactly one row.
func (r *UserRepository) InsertUser(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (username, password_hash, email) VALUES ($1, $2, $3)`,
		user.Username, user.PasswordHash, user.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("AUTH_DUPLICATE_USER").
				With("username", user.Username).
				Wrap(auth.ErrDuplicateUser)
		}
		return oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(auth.StoreError(err))
	}
	return nil
}

// FindUser looks a user up by exact username.
func (r *UserRepository) FindUser(ctx context.Context, username string) (*auth.User, error) {
	var u auth.User
	err := r.db.QueryRow(ctx,
		`SELECT username, password_hash, email FROM users WHERE username = $1`,
		username).Scan(&u.Username, &u.PasswordHash, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("username", username).
			Wrap(auth.StoreError(err))
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE username = $1`,
		username, passwordHash)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update password hash").
			With("username", username).
			Wrap(auth.StoreError(err))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("AUTH_USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrUserNotFound)
	}
	return nil
}

// DeleteUser removes the user; login_history rows go with it through the
// foreign key.
func (r *UserRepository) DeleteUser(ctx context.Context, username string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("username", username).
			Wrap(auth.StoreError(err))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("AUTH_USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrUserNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ auth.CredentialStore = (*UserRepository)(nil)
