package secret

import "errors"

// Sentinel errors for secret resolution.
var (
	ErrProviderNotRegistered = errors.New("secret: provider not registered")
	ErrInvalidRef            = errors.New("secret: invalid reference")
	ErrEmptySecret           = errors.New("secret: provider returned an empty value")
	ErrMissingEnv            = errors.New("secret: missing required environment variables")
)
