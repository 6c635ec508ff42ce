// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/authledger/authledger/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(migrator.Close()).To(Succeed()) })
	})

	It("starts at version zero", func() {
		st, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Version).To(BeZero())
		Expect(st.Pending).To(Equal([]uint{1, 2}))
	})

	It("applies every migration and is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed())

		v, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())
	})

	It("steps down and back up", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		v, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		v, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint(2)))
	})

	It("cascades history when a user is deleted", func(ctx SpecContext) {
		pool, err := store.Open(ctx, store.Options{URL: connStr, ConnectAttempts: 3})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		_, err = pool.Exec(ctx, `INSERT INTO users (username, password_hash, email) VALUES ('gone', 'h', 'g@example.com')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO login_history (username, occurred_at, user_agent) VALUES ('gone', $1, 'ua')`, time.Now())
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `DELETE FROM users WHERE username = 'gone'`)
		Expect(err).NotTo(HaveOccurred())

		var n int
		Expect(pool.QueryRow(ctx, `SELECT COUNT(*) FROM login_history WHERE username = 'gone'`).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	}, SpecTimeout(30*time.Second))

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())
		v, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeZero())
	})

	It("opens a pool against the running container", func(ctx context.Context) {
		pool, err := store.Open(ctx, store.Options{URL: connStr, MaxConns: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.Config().MaxConns).To(Equal(int32(2)))
		pool.Close()
	})
})
