// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts the code oops reports for err. oops reports the
// innermost code in the chain, so a wrapper that adds its own code on top of
// an already coded error is invisible here; assert its context instead.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code(), "error: %v", err)
}

// AssertErrorContext asserts that key maps to value in the context merged
// over err's whole chain.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	assertContext(t, requireOops(t, err).Context(), key, value)
}

// AssertCoded asserts how callers classify err: it matches target with
// errors.Is, oops reports code, and every key/value pair in kv is present in
// the context. A nil target skips the errors.Is check.
//
//	errutil.AssertCoded(t, err, auth.ErrStore, "HISTORY_TRIM_FAILED", "limit", 8)
func AssertCoded(t *testing.T, err, target error, code string, kv ...any) {
	t.Helper()
	if target != nil {
		require.ErrorIs(t, err, target)
	}
	oopsErr := requireOops(t, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v", err)

	require.Zero(t, len(kv)%2, "context must be key/value pairs")
	errCtx := oopsErr.Context()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		require.True(t, ok, "context key %v is not a string", kv[i])
		assertContext(t, errCtx, key, kv[i+1])
	}
}

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	return oopsErr
}

func assertContext(t *testing.T, errCtx map[string]any, key string, value any) {
	t.Helper()
	if assert.Contains(t, errCtx, key) {
		assert.Equal(t, value, errCtx[key], "context %q", key)
	}
}
