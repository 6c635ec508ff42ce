// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/authledger/authledger/pkg/errutil"
)

// CompactionResult summarizes one compaction pass.
type CompactionResult struct {
	Users   int
	Deleted int64
}

// Compactor trims every user holding more history rows than the cap, so the
// ledger converges even for users who never log in again after a race.
type Compactor struct {
	history HistoryLedger
	limit   int
	logger  *slog.Logger
}

// NewCompactor creates a Compactor for the given cap.
func NewCompactor(history HistoryLedger, limit int, logger *slog.Logger) (*Compactor, error) {
	if history == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("history ledger is required")
	}
	if limit <= 0 {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").With("history_limit", limit).Errorf("history limit must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compactor{history: history, limit: limit, logger: logger}, nil
}

// RunOnce trims all over-cap users. It stops at the first failure and
// reports what was done up to that point.
func (c *Compactor) RunOnce(ctx context.Context) (CompactionResult, error) {
	var result CompactionResult

	usernames, err := c.history.OverCap(ctx, c.limit)
	if err != nil {
		return result, oops.Code("HISTORY_COMPACT_FAILED").With("operation", "list over-cap users").Wrap(err)
	}

	for _, username := range usernames {
		deleted, err := c.history.TrimToLatest(ctx, username, c.limit)
		if err != nil {
			return result, oops.Code("HISTORY_COMPACT_FAILED").
				With("operation", "trim").
				With("username", username).
				Wrap(err)
		}
		recordTrimmed(deleted)
		result.Users++
		result.Deleted += deleted
	}
	return result, nil
}

// Run compacts every interval until ctx is cancelled. Pass failures are
// logged and the loop keeps going.
func (c *Compactor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return oops.Code("HISTORY_COMPACT_INVALID_INTERVAL").With("interval", interval).Errorf("interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := c.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				errutil.LogError(ctx, c.logger, "history compaction failed", err)
				continue
			}
			if result.Users > 0 {
				c.logger.InfoContext(ctx, "history compacted", "users", result.Users, "deleted", result.Deleted)
			}
		}
	}
}
