package config

import "errors"

// Sentinel errors for loading and validation.
var (
	ErrUnknownFormat     = errors.New("config: unable to determine file format")
	ErrInvalidCapacity   = errors.New("config: token bucket capacity must be positive")
	ErrInvalidRetryCost  = errors.New("config: invalid retry cost")
	ErrInvalidAttempts   = errors.New("config: max_attempts must be positive")
	ErrInvalidDelay      = errors.New("config: invalid retry delay")
	ErrInvalidRateLimit  = errors.New("config: invalid rate limit")
	ErrInvalidEnvValue   = errors.New("config: invalid environment value")
	ErrInvalidAttemptTTL = errors.New("config: attempt_timeout must not be negative")
)
