// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

// Package auth registers users, verifies their credentials and keeps a
// bounded history of their recent logins.
//
// # Stores
//
// Persistence is split in two interfaces:
//   - CredentialStore - user identities and password hashes
//   - HistoryLedger - the per-user login event log, capped by TrimToLatest
//
// internal/auth/postgres implements both on PostgreSQL; authtest provides an
// in-memory implementation for tests.
//
// # Services
//
//   - Service - RegisterUser and VerifyCredentials
//   - Compactor - trims every user whose ledger grew past the cap
//
// The ledger is eventually consistent. Concurrent verifications for the same
// user interleave their append, trim and read-back statements, so a returned
// history may miss a sibling's entry and the table may briefly hold more rows
// than the cap. The next trim converges it.
package auth
