// Package secret resolves credential references found in client
// configuration.
//
// A value is either a full reference, an inline reference or plain text
// with environment variables:
//
//	secretref:env:PHOTOS_SECRET_KEY
//	secretref:file:/run/secrets/photos-key
//	${PHOTOS_ACCESS_KEY_ID}
//
// Environment expansion is strict: a ${VAR} naming an unset variable is an
// error, and $$ produces a literal dollar sign. References are resolved
// after expansion.
//
// CredentialsProvider turns three such values into auth.Credentials.
package secret
