// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package auth

import (
	"context"
	"time"
)

// DefaultHistoryLimit is the number of login events retained per user.
const DefaultHistoryLimit = 8

// User is a stored identity. PasswordHash is an encoded one-way hash and
// must never be logged.
type User struct {
	Username     string
	PasswordHash string
	Email        string
}

// LoginHistoryEntry is one recorded verification. ID orders entries by
// recency and is never handed to callers.
type LoginHistoryEntry struct {
	ID        int64
	Username  string
	Timestamp time.Time
	UserAgent string
}

// LoginEvent is the caller-facing view of a history entry.
type LoginEvent struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	UserAgent string    `json:"user_agent" yaml:"user_agent"`
}

// UserProfile is returned by a successful verification.
type UserProfile struct {
	Username     string       `json:"username" yaml:"username"`
	Email        string       `json:"email" yaml:"email"`
	LoginHistory []LoginEvent `json:"login_history" yaml:"login_history"`
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username             string
	Password             string
	PasswordConfirmation string
	Email                string
}

// VerifyInput carries a login attempt.
type VerifyInput struct {
	Username  string
	Password  string
	UserAgent string
}

// CredentialStore persists users.
type CredentialStore interface {
	// InsertUser stores a new user. Returns ErrDuplicateUser when the
	// username is taken; uniqueness is enforced by the store itself.
	InsertUser(ctx context.Context, user *User) error

	// FindUser returns the user or ErrUserNotFound.
	FindUser(ctx context.Context, username string) (*User, error)

	// UpdatePasswordHash replaces the stored hash.
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error

	// DeleteUser removes the user and, by cascade, its history.
	DeleteUser(ctx context.Context, username string) error
}

// HistoryLedger persists login events.
type HistoryLedger interface {
	// Append records one event.
	Append(ctx context.Context, username string, at time.Time, userAgent string) error

	// TrimToLatest deletes all but the limit most recent entries of username
	// and returns how many rows were removed. Not atomic with Append.
	TrimToLatest(ctx context.Context, username string, limit int) (int64, error)

	// Latest returns up to limit entries, most recent first.
	Latest(ctx context.Context, username string, limit int) ([]LoginHistoryEntry, error)

	// OverCap lists usernames holding more than limit entries.
	OverCap(ctx context.Context, limit int) ([]string, error)
}

func toLoginEvents(entries []LoginHistoryEntry) []LoginEvent {
	events := make([]LoginEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, LoginEvent{Timestamp: e.Timestamp, UserAgent: e.UserAgent})
	}
	return events
}
