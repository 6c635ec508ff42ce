// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/authledger/authledger/internal/auth"
	"github.com/authledger/authledger/internal/auth/authtest"
	"github.com/authledger/authledger/internal/config"
	"github.com/authledger/authledger/internal/store"
)

const testDatabaseURL = "postgres://authledger@localhost:5432/authledger"

var fastParams = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

// harness backs the CLI with an in-memory store and records what the
// commands asked for.
type harness struct {
	store     *authtest.Store
	migrator  *fakeMigrator
	compactor *fakeCompactor

	openErr    error
	opened     atomic.Int32
	closed     atomic.Int32
	cfg        *config.Config
	migrateURL string
}

func newHarness() *harness {
	return &harness{
		store:     authtest.NewStore(),
		migrator:  &fakeMigrator{status: store.Status{Version: 2, Applied: []uint{1, 2}}},
		compactor: &fakeCompactor{},
	}
}

func (h *harness) deps() *Deps {
	return &Deps{
		Open: func(_ context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
			h.opened.Add(1)
			h.cfg = cfg
			if h.openErr != nil {
				return nil, h.openErr
			}
			svc, err := auth.NewService(h.store, h.store, auth.NewArgon2idHasherWithParams(fastParams),
				auth.WithLogger(logger),
				auth.WithHistoryLimit(cfg.Auth.HistoryLimit))
			if err != nil {
				return nil, err
			}
			return &Runtime{
				Auth:      svc,
				Users:     h.store,
				Compactor: h.compactor,
				Ready:     func(context.Context) error { return nil },
				PublicMessage: func(err error) string {
					return auth.PublicMessage(err, cfg.Auth.ExposeStoreErrors)
				},
				RegisterMetrics: func(reg prometheus.Registerer) { auth.RegisterMetrics(reg) },
				Close:           func() { h.closed.Add(1) },
			}, nil
		},
		NewMigrator: func(databaseURL string) (Migrator, error) {
			h.migrateURL = databaseURL
			return h.migrator, nil
		},
		Getenv: func(key string) string {
			if key == config.DatabaseURLEnv {
				return testDatabaseURL
			}
			return ""
		},
		IsTerminal:   func(int) bool { return false },
		ReadPassword: func(int) ([]byte, error) { return nil, nil },
	}
}

// run executes the CLI with args, feeding stdin as standard input.
func run(t *testing.T, deps *Deps, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func registerUser(t *testing.T, h *harness, username, password string) {
	t.Helper()
	_, _, err := run(t, h.deps(), password+"\n"+password+"\n", "user", "register", "--username", username)
	require.NoError(t, err)
}

type fakeMigrator struct {
	mu       sync.Mutex
	calls    []string
	status   store.Status
	upErr    error
	downErr  error
	forceErr error
	closed   bool
}

func (m *fakeMigrator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *fakeMigrator) Up() error {
	m.record("up")
	return m.upErr
}

func (m *fakeMigrator) Down() error {
	m.record("down")
	return m.downErr
}

func (m *fakeMigrator) Force(version int) error {
	m.record("force")
	return m.forceErr
}

func (m *fakeMigrator) Status() (store.Status, error) {
	m.record("status")
	return m.status, nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

type fakeCompactor struct {
	result   auth.CompactionResult
	err      error
	once     atomic.Int32
	running  atomic.Bool
	interval atomic.Int64
}

func (c *fakeCompactor) RunOnce(context.Context) (auth.CompactionResult, error) {
	c.once.Add(1)
	return c.result, c.err
}

func (c *fakeCompactor) Run(ctx context.Context, interval time.Duration) error {
	c.interval.Store(int64(interval))
	c.running.Store(true)
	<-ctx.Done()
	c.running.Store(false)
	return nil
}

// lockedBuffer is a bytes.Buffer safe for concurrent writers and readers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
