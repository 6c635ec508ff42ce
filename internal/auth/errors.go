// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors. Implementations wrap these with oops codes and context;
// match them with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrDuplicateUser      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStore marks transport and schema level storage faults.
	ErrStore = errors.New("store error")

	ErrRegistrationFailed = errors.New("registration failed")
	ErrVerificationFailed = errors.New("verification failed")
)

// StoreError marks err as a storage fault while keeping it in the chain.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStore, err)
}

// wrapFailure tags cause with one of the Failed sentinels.
func wrapFailure(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
