// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

// Package errutil bridges oops errors with slog and tests.
package errutil

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

const redacted = "[REDACTED]"

// LogError logs err at error level. For oops errors the code and context are
// logged as separate attributes; context values under credential-looking keys
// are redacted.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.ErrorContext(ctx, msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", redact(errCtx))
	}
	logger.ErrorContext(ctx, msg, attrs...)
}

func redact(errCtx map[string]any) map[string]any {
	out := make(map[string]any, len(errCtx))
	for k, v := range errCtx {
		if isSensitiveKey(k) {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "hash") || strings.Contains(k, "secret")
}
