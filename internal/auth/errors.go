package auth

import "errors"

// Token errors.
var (
	ErrTokenInvalid   = errors.New("auth: invalid token")
	ErrSecretTooShort = errors.New("auth: signing secret too short")
	ErrMissingSubject = errors.New("auth: subject is required")
)
