// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/authledger/authledger/pkg/errutil"
)

// dummyPasswordHash is verified when a user doesn't exist so the response
// time matches that of a wrong password.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

var tracer = otel.Tracer("github.com/authledger/authledger/internal/auth")

// verifyState names the step a verification was in when it failed.
type verifyState string

const (
	stateLookingUpUser     verifyState = "looking_up_user"
	stateComparingPassword verifyState = "comparing_password"
	stateRecordingHistory  verifyState = "recording_history"
	stateTrimming          verifyState = "trimming"
	stateReadingBack       verifyState = "reading_back"
)

// Service registers users and verifies their credentials. It holds no
// persistent state of its own and never retries a failed statement.
type Service struct {
	users        CredentialStore
	history      HistoryLedger
	hasher       PasswordHasher
	logger       *slog.Logger
	clock        func() time.Time
	historyLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the source of login timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) { s.historyLimit = limit }
}

// NewService creates a Service.
func NewService(users CredentialStore, history HistoryLedger, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("credential store is required")
	}
	if history == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("history ledger is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}

	s := &Service{
		users:        users,
		history:      history,
		hasher:       hasher,
		logger:       slog.Default(),
		clock:        time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	if s.clock == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("clock is required")
	}
	if s.historyLimit <= 0 {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").
			With("history_limit", s.historyLimit).
			Errorf("history limit must be positive")
	}
	return s, nil
}

// HistoryLimit returns the number of login events kept per user.
func (s *Service) HistoryLimit() int {
	return s.historyLimit
}

// RegisterUser validates the input, hashes the password and stores the user.
// Validation failures return before any storage access.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (err error) {
	ctx, span := tracer.Start(ctx, "auth.RegisterUser", trace.WithAttributes(attribute.String("username", in.Username)))
	outcome := OutcomeError
	defer func() {
		recordRegistration(outcome)
		span.SetAttributes(attribute.String("outcome", outcome))
		endSpan(span, err)
	}()

	logger := s.logger.With(
		"operation", "register",
		"operation_id", ulid.Make().String(),
		"username", in.Username,
	)

	if in.Password != in.PasswordConfirmation {
		outcome = OutcomePasswordMismatch
		return oops.Code("AUTH_PASSWORD_MISMATCH").
			With("username", in.Username).
			Wrap(ErrPasswordMismatch)
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		outcome = OutcomeInvalidInput
		return oops.Code("AUTH_INVALID_INPUT").
			With("username", in.Username).
			Wrap(ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		wrapped := oops.Code("AUTH_REGISTRATION_FAILED").
			With("operation", "hash password").
			With("username", in.Username).
			Wrap(wrapFailure(ErrRegistrationFailed, err))
		errutil.LogError(ctx, logger, "registration failed", wrapped)
		return wrapped
	}

	user := &User{Username: in.Username, PasswordHash: hash, Email: in.Email}
	if err = s.users.InsertUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			outcome = OutcomeDuplicate
			logger.InfoContext(ctx, "registration rejected, username taken")
			return err
		}
		wrapped := oops.Code("AUTH_REGISTRATION_FAILED").
			With("operation", "insert user").
			With("username", in.Username).
			Wrap(wrapFailure(ErrRegistrationFailed, err))
		errutil.LogError(ctx, logger, "registration failed", wrapped)
		return wrapped
	}

	outcome = OutcomeSuccess
	logger.InfoContext(ctx, "user registered")
	return nil
}

// VerifyCredentials checks the password, records the login, trims the ledger
// and returns the profile with the most recent history first.
//
// A storage failure after the password matched is reported as
// ErrVerificationFailed, never as ErrInvalidCredentials.
func (s *Service) VerifyCredentials(ctx context.Context, in VerifyInput) (*UserProfile, error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyCredentials", trace.WithAttributes(attribute.String("username", in.Username)))
	start := time.Now()
	logger := s.logger.With(
		"operation", "verify",
		"operation_id", ulid.Make().String(),
		"username", in.Username,
	)

	profile, outcome, err := s.verify(ctx, logger, in)
	recordVerification(outcome, time.Since(start))
	span.SetAttributes(attribute.String("outcome", outcome))
	endSpan(span, err)
	return profile, err
}

// endSpan marks span failed for store faults only; rejected credentials
// are an expected outcome, not an error of the service.
func endSpan(span trace.Span, err error) {
	if err != nil && (errors.Is(err, ErrRegistrationFailed) || errors.Is(err, ErrVerificationFailed)) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failure")
	}
	span.End()
}

func (s *Service) verify(ctx context.Context, logger *slog.Logger, in VerifyInput) (*UserProfile, string, error) {
	user, err := s.users.FindUser(ctx, in.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = s.hasher.Verify(in.Password, dummyPasswordHash) //nolint:errcheck // timing only
			logger.InfoContext(ctx, "verification rejected", "reason", OutcomeNotFound)
			return nil, OutcomeNotFound, err
		}
		return nil, OutcomeError, s.verificationFailed(ctx, logger, stateLookingUpUser, err)
	}

	valid, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, OutcomeError, s.verificationFailed(ctx, logger, stateComparingPassword, err)
	}
	if !valid {
		logger.InfoContext(ctx, "verification rejected", "reason", OutcomeInvalidCredentials)
		return nil, OutcomeInvalidCredentials, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("username", in.Username).
			Wrap(ErrInvalidCredentials)
	}

	s.upgradeHash(ctx, logger, user, in.Password)

	if err := s.history.Append(ctx, user.Username, s.clock().UTC(), in.UserAgent); err != nil {
		return nil, OutcomeError, s.verificationFailed(ctx, logger, stateRecordingHistory, err)
	}

	trimmed, err := s.history.TrimToLatest(ctx, user.Username, s.historyLimit)
	if err != nil {
		return nil, OutcomeError, s.verificationFailed(ctx, logger, stateTrimming, err)
	}
	recordTrimmed(trimmed)

	entries, err := s.history.Latest(ctx, user.Username, s.historyLimit)
	if err != nil {
		return nil, OutcomeError, s.verificationFailed(ctx, logger, stateReadingBack, err)
	}

	logger.InfoContext(ctx, "user verified", "history_len", len(entries), "trimmed", trimmed)
	return &UserProfile{
		Username:     user.Username,
		Email:        user.Email,
		LoginHistory: toLoginEvents(entries),
	}, OutcomeSuccess, nil
}

// upgradeHash rehashes legacy or outdated hashes after a successful match.
// Failures are logged; the login proceeds regardless.
func (s *Service) upgradeHash(ctx context.Context, logger *slog.Logger, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		logger.WarnContext(ctx, "password hash upgrade failed", "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.Username, newHash); err != nil {
		logger.WarnContext(ctx, "password hash upgrade failed", "error", err)
		return
	}
	user.PasswordHash = newHash
	logger.InfoContext(ctx, "password hash upgraded")
}

func (s *Service) verificationFailed(ctx context.Context, logger *slog.Logger, state verifyState, cause error) error {
	err := oops.Code("AUTH_VERIFICATION_FAILED").
		With("state", string(state)).
		Wrap(wrapFailure(ErrVerificationFailed, cause))
	errutil.LogError(ctx, logger, "verification failed", err)
	return err
}
