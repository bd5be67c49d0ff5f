package auth

import "errors"

// Sentinel errors for signing and verification.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrCredentialsExpired = errors.New("auth: credentials expired")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrRequestMismatch    = errors.New("auth: token does not match request")

	// ErrCredentialsExpireBeforeWindow indicates credentials that expire
	// before the end of a presigning window.
	ErrCredentialsExpireBeforeWindow = errors.New("auth: credentials expire before the presigned request")
)
