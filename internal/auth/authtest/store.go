// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

// Package authtest provides an in-memory implementation of the auth stores
// with call counters and fault injection.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authledger/authledger/internal/auth"
)

// Operation names used by Calls and FailOn.
const (
	OpInsertUser         = "InsertUser"
	OpFindUser           = "FindUser"
	OpUpdatePasswordHash = "UpdatePasswordHash"
	OpDeleteUser         = "DeleteUser"
	OpAppend             = "Append"
	OpTrimToLatest       = "TrimToLatest"
	OpLatest             = "Latest"
	OpOverCap            = "OverCap"
)

var writeOps = map[string]bool{
	OpInsertUser:         true,
	OpUpdatePasswordHash: true,
	OpDeleteUser:         true,
	OpAppend:             true,
	OpTrimToLatest:       true,
}

// Store is an in-memory CredentialStore and HistoryLedger. History IDs are
// assigned from a single increasing counter, like a BIGSERIAL column.
type Store struct {
	mu      sync.Mutex
	users   map[string]auth.User
	history []auth.LoginHistoryEntry
	nextID  int64
	calls   map[string]int
	faults  map[string]error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]auth.User),
		calls:  make(map[string]int),
		faults: make(map[string]error),
	}
}

// FailOn makes every subsequent call to op return err as a store fault.
// A nil err clears the fault.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Writes returns the number of mutating calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for op, n := range s.calls {
		if writeOps[op] {
			total += n
		}
	}
	return total
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// HistoryCount returns the number of stored entries for username.
func (s *Store) HistoryCount(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.history {
		if e.Username == username {
			n++
		}
	}
	return n
}

// User returns a copy of the stored user.
func (s *Store) User(username string) (auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	return u, ok
}

// enter records the call and returns the injected fault, if any.
// Callers must hold s.mu.
func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.faults[op]; ok {
		return oops.Code("STORE_ERROR").With("operation", op).Wrap(auth.StoreError(err))
	}
	return nil
}

// InsertUser stores a new user.
func (s *Store) InsertUser(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpInsertUser); err != nil {
		return err
	}
	if _, exists := s.users[user.Username]; exists {
		return oops.Code("AUTH_DUPLICATE_USER").With("username", user.Username).Wrap(auth.ErrDuplicateUser)
	}
	s.users[user.Username] = *user
	return nil
}

// FindUser returns the user or auth.ErrUserNotFound.
func (s *Store) FindUser(_ context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpFindUser); err != nil {
		return nil, err
	}
	u, ok := s.users[username]
	if !ok {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").With("username", username).Wrap(auth.ErrUserNotFound)
	}
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash.
func (s *Store) UpdatePasswordHash(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpdatePasswordHash); err != nil {
		return err
	}
	u, ok := s.users[username]
	if !ok {
		return oops.Code("AUTH_USER_NOT_FOUND").With("username", username).Wrap(auth.ErrUserNotFound)
	}
	u.PasswordHash = passwordHash
	s.users[username] = u
	return nil
}

// DeleteUser removes the user and its history.
func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteUser); err != nil {
		return err
	}
	if _, ok := s.users[username]; !ok {
		return oops.Code("AUTH_USER_NOT_FOUND").With("username", username).Wrap(auth.ErrUserNotFound)
	}
	delete(s.users, username)
	kept := s.history[:0]
	for _, e := range s.history {
		if e.Username != username {
			kept = append(kept, e)
		}
	}
	s.history = kept
	return nil
}

// Append records one login event.
func (s *Store) Append(_ context.Context, username string, at time.Time, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpAppend); err != nil {
		return err
	}
	if _, ok := s.users[username]; !ok {
		return oops.Code("HISTORY_APPEND_FAILED").With("username", username).Wrap(auth.StoreError(auth.ErrUserNotFound))
	}
	s.nextID++
	s.history = append(s.history, auth.LoginHistoryEntry{
		ID:        s.nextID,
		Username:  username,
		Timestamp: at,
		UserAgent: userAgent,
	})
	return nil
}

// TrimToLatest keeps the limit highest IDs for username.
func (s *Store) TrimToLatest(_ context.Context, username string, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpTrimToLatest); err != nil {
		return 0, err
	}

	keep := make(map[int64]bool, limit)
	for _, e := range s.latestLocked(username, limit) {
		keep[e.ID] = true
	}

	var deleted int64
	kept := s.history[:0]
	for _, e := range s.history {
		if e.Username == username && !keep[e.ID] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.history = kept
	return deleted, nil
}

// Latest returns up to limit entries for username, newest first.
func (s *Store) Latest(_ context.Context, username string, limit int) ([]auth.LoginHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpLatest); err != nil {
		return nil, err
	}
	return s.latestLocked(username, limit), nil
}

// OverCap lists usernames with more than limit entries.
func (s *Store) OverCap(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpOverCap); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, e := range s.history {
		counts[e.Username]++
	}
	var out []string
	for username, n := range counts {
		if n > limit {
			out = append(out, username)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SeedHistory appends entries directly, bypassing counters and faults.
func (s *Store) SeedHistory(username string, n int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.nextID++
		s.history = append(s.history, auth.LoginHistoryEntry{
			ID:        s.nextID,
			Username:  username,
			Timestamp: at,
			UserAgent: "seed",
		})
	}
}

func (s *Store) latestLocked(username string, limit int) []auth.LoginHistoryEntry {
	var mine []auth.LoginHistoryEntry
	for _, e := range s.history {
		if e.Username == username {
			mine = append(mine, e)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine
}

var (
	_ auth.CredentialStore = (*Store)(nil)
	_ auth.HistoryLedger   = (*Store)(nil)
)
