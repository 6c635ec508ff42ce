// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package auth

import "errors"

// Messages shown to end users.
const (
	MsgInvalidLogin        = "invalid username or password"
	MsgPasswordMismatch    = "passwords do not match"
	MsgInvalidInput        = "username and password are required"
	MsgDuplicateUser       = "username already taken"
	MsgRegistrationFailed  = "there was an error creating the user"
	MsgVerificationFailed  = "there was an error verifying the user"
	MsgInternalServerError = "internal error"
)

// PublicMessage renders err for an end user. Unknown users and wrong
// passwords produce the same text. Storage detail is appended only when
// exposeDetail is set, which is meant for local debugging.
func PublicMessage(err error, exposeDetail bool) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPasswordMismatch):
		return MsgPasswordMismatch
	case errors.Is(err, ErrInvalidInput):
		return MsgInvalidInput
	case errors.Is(err, ErrDuplicateUser):
		return MsgDuplicateUser
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidLogin
	case errors.Is(err, ErrRegistrationFailed):
		return withDetail(MsgRegistrationFailed, err, exposeDetail)
	case errors.Is(err, ErrVerificationFailed):
		return withDetail(MsgVerificationFailed, err, exposeDetail)
	default:
		return withDetail(MsgInternalServerError, err, exposeDetail)
	}
}

func withDetail(msg string, err error, exposeDetail bool) string {
	if !exposeDetail {
		return msg
	}
	return msg + ": " + err.Error()
}
