// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/authledger/authledger/internal/auth"
)

// HistoryRepository implements auth.HistoryLedger. Entries are ordered by
// their BIGSERIAL id, which follows insertion order; two entries can carry
// the same timestamp but never the same id.
type HistoryRepository struct {
	db DB
}

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one login event.
func (r *HistoryRepository) Append(ctx context.Context, username string, at time.Time, userAgent string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO login_history (username, occurred_at, user_agent) VALUES ($1, $2, $3)`,
		username, at, userAgent)
	if err != nil {
		return oops.Code("HISTORY_APPEND_FAILED").
			With("operation", "append login event").
			With("username", username).
			Wrap(auth.StoreError(err))
	}
	return nil
}

// TrimToLatest deletes every entry of username except the limit newest in
// one statement. Running it twice is harmless.
func (r *HistoryRepository) TrimToLatest(ctx context.Context, username string, limit int) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM login_history
		WHERE username = $1
		  AND id NOT IN (
			SELECT id FROM login_history
			WHERE username = $1
			ORDER BY id DESC
			LIMIT $2
		  )
	`, username, limit)
	if err != nil {
		return 0, oops.Code("HISTORY_TRIM_FAILED").
			With("operation", "trim login history").
			With("username", username).
			With("limit", limit).
			Wrap(auth.StoreError(err))
	}
	return tag.RowsAffected(), nil
}

// Latest returns up to limit entries, newest first.
func (r *HistoryRepository) Latest(ctx context.Context, username string, limit int) ([]auth.LoginHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, occurred_at, user_agent
		FROM login_history
		WHERE username = $1
		ORDER BY id DESC
		LIMIT $2
	`, username, limit)
	if err != nil {
		return nil, oops.Code("HISTORY_QUERY_FAILED").
			With("operation", "query login history").
			With("username", username).
			Wrap(auth.StoreError(err))
	}
	defer rows.Close()

	entries := make([]auth.LoginHistoryEntry, 0, limit)
	for rows.Next() {
		var e auth.LoginHistoryEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Timestamp, &e.UserAgent); err != nil {
			return nil, oops.Code("HISTORY_QUERY_FAILED").
				With("operation", "scan login history").
				With("username", username).
				Wrap(auth.StoreError(err))
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("HISTORY_QUERY_FAILED").
			With("operation", "iterate login history").
			With("username", username).
			Wrap(auth.StoreError(err))
	}
	return entries, nil
}

// OverCap lists users holding more than limit entries.
func (r *HistoryRepository) OverCap(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT username
		FROM login_history
		GROUP BY username
		HAVING COUNT(*) > $1
		ORDER BY username
	`, limit)
	if err != nil {
		return nil, oops.Code("HISTORY_QUERY_FAILED").
			With("operation", "list over-cap users").
			Wrap(auth.StoreError(err))
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, oops.Code("HISTORY_QUERY_FAILED").
				With("operation", "scan over-cap users").
				Wrap(auth.StoreError(err))
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("HISTORY_QUERY_FAILED").
			With("operation", "iterate over-cap users").
			Wrap(auth.StoreError(err))
	}
	return usernames, nil
}

var _ auth.HistoryLedger = (*HistoryRepository)(nil)
