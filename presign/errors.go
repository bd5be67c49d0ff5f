package presign

import "errors"

// Configuration errors returned by ConfigBuilder.Build.
var (
	// ErrExpiresInRequired indicates the builder was given no expiry.
	ErrExpiresInRequired = errors.New("presign: expires_in is required")

	// ErrExpiresInTooLong indicates an expiry longer than MaxExpiresIn.
	ErrExpiresInTooLong = errors.New("presign: expires_in must be no longer than one week")

	// ErrExpiresInNegative indicates a negative expiry.
	ErrExpiresInNegative = errors.New("presign: expires_in must not be negative")
)
