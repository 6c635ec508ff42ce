// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

//go:build integration

package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/authledger/authledger/internal/app"
	"github.com/authledger/authledger/internal/auth"
	"github.com/authledger/authledger/internal/config"
)

var _ = Describe("Login ledger", func() {
	var (
		ctx context.Context
		a   *app.App
	)

	register := func(username, password, email string) error {
		return a.Auth.RegisterUser(ctx, auth.RegisterInput{
			Username:             username,
			Password:             password,
			PasswordConfirmation: password,
			Email:                email,
		})
	}

	verify := func(username, password, userAgent string) (*auth.UserProfile, error) {
		return a.Auth.VerifyCredentials(ctx, auth.VerifyInput{
			Username:  username,
			Password:  password,
			UserAgent: userAgent,
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		a = openApp(ctx, nil)
		DeferCleanup(a.Close)
	})

	Describe("registration", func() {
		It("stores a salted hash, never the password", func() {
			Expect(register("alice", "s3cret", "alice@example.com")).To(Succeed())

			u, err := a.Users.FindUser(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.PasswordHash).To(HavePrefix("$argon2id$"))
			Expect(u.PasswordHash).NotTo(ContainSubstring("s3cret"))
			Expect(u.Email).To(Equal("alice@example.com"))
		})

		It("lets exactly one of many concurrent registrations win", func() {
			const racers = 16
			var (
				wg         sync.WaitGroup
				mu         sync.Mutex
				wins, dups int
			)
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					err := register("bob", "pw", "")
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, auth.ErrDuplicateUser):
						dups++
					default:
						Fail(fmt.Sprintf("unexpected error: %v", err))
					}
				}()
			}
			wg.Wait()

			Expect(wins).To(Equal(1))
			Expect(dups).To(Equal(racers - 1))
		})
	})

	Describe("verification", func() {
		BeforeEach(func() {
			Expect(register("alice", "s3cret", "alice@example.com")).To(Succeed())
		})

		It("records the first login", func() {
			profile, err := verify("alice", "s3cret", "Mozilla/5.0")
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Username).To(Equal("alice"))
			Expect(profile.Email).To(Equal("alice@example.com"))
			Expect(profile.LoginHistory).To(HaveLen(1))
			Expect(profile.LoginHistory[0].UserAgent).To(Equal("Mozilla/5.0"))
		})

		It("rejects wrong passwords and unknown users alike without writing", func() {
			_, wrongErr := verify("alice", "nope", "ua")
			_, unknownErr := verify("mallory", "nope", "ua")

			Expect(wrongErr).To(MatchError(auth.ErrInvalidCredentials))
			Expect(unknownErr).To(MatchError(auth.ErrUserNotFound))
			Expect(a.PublicMessage(wrongErr)).To(Equal(a.PublicMessage(unknownErr)))
			Expect(historyCount(ctx, a, "alice")).To(Equal(0))
		})

		It("keeps only the eight most recent logins, newest first", func() {
			var profile *auth.UserProfile
			for i := 1; i <= 12; i++ {
				var err error
				profile, err = verify("alice", "s3cret", fmt.Sprintf("agent-%02d", i))
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(profile.LoginHistory).To(HaveLen(8))
			for i, event := range profile.LoginHistory {
				Expect(event.UserAgent).To(Equal(fmt.Sprintf("agent-%02d", 12-i)))
			}
			Expect(historyCount(ctx, a, "alice")).To(Equal(8))
		})

		It("converges to the cap after concurrent logins and a compaction pass", func() {
			const logins = 24
			var wg sync.WaitGroup
			for i := 0; i < logins; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					profile, err := verify("alice", "s3cret", fmt.Sprintf("agent-%02d", i))
					Expect(err).NotTo(HaveOccurred())
					Expect(len(profile.LoginHistory)).To(BeNumerically("<=", 8))
				}(i)
			}
			wg.Wait()

			_, err := a.Compactor.RunOnce(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(historyCount(ctx, a, "alice")).To(Equal(8))

			over, err := a.History.OverCap(ctx, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(over).To(BeEmpty())
		})

		It("removes the history together with the user", func() {
			_, err := verify("alice", "s3cret", "ua")
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Users.DeleteUser(ctx, "alice")).To(Succeed())
			Expect(historyCount(ctx, a, "alice")).To(Equal(0))

			_, err = verify("alice", "s3cret", "ua")
			Expect(err).To(MatchError(auth.ErrUserNotFound))
		})
	})

	Describe("history limit", func() {
		It("follows the configured limit", func() {
			a.Close()
			a = openApp(ctx, func(cfg *config.Config) { cfg.Auth.HistoryLimit = 3 })
			DeferCleanup(a.Close)

			Expect(register("carol", "pw", "")).To(Succeed())
			var profile *auth.UserProfile
			for i := 0; i < 5; i++ {
				var err error
				profile, err = verify("carol", "pw", "ua")
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(profile.LoginHistory).To(HaveLen(3))
			Expect(historyCount(ctx, a, "carol")).To(Equal(3))
		})
	})

	Describe("initialization", func() {
		It("is idempotent against an initialized database", func() {
			Expect(register("dave", "pw", "")).To(Succeed())

			cfg := *a.Config
			again, err := app.InitializeWithDeps(ctx, &cfg, nil, &app.Deps{
				Hasher: auth.NewArgon2idHasherWithParams(fastParams),
			})
			Expect(err).NotTo(HaveOccurred())
			defer again.Close()

			u, err := again.Users.FindUser(ctx, "dave")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Username).To(Equal("dave"))
			Expect(again.Ready(ctx)).To(Succeed())
		})
	})
})
