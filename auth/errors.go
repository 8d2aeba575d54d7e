package auth

import "errors"

// Sentinel errors for login strategies. They are always wrapped together with
// one of the errdefs kinds.
var (
	// Strategy selection errors
	ErrUnknownStrategy    = errors.New("auth: unknown strategy")
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// Login errors
	ErrMissingClientToken = errors.New("auth: response has no client token")
	ErrMissingRoleID      = errors.New("auth: response has no role id")
	ErrMissingSecretID    = errors.New("auth: response has no secret id")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
)
