// Package auth signs outgoing requests and presigned URLs.
//
// Credentials come from a CredentialsProvider; CachingProvider wraps a slow
// source and refreshes it shortly before the cached credentials expire,
// with concurrent refreshes collapsed into one. BearerSigner turns
// credentials and a signing time into an HS256 JWT bound to the request's
// method, host and path. The signing time is supplied by the caller, which
// reads it from the call's configured time source, so anything that changes
// that time source also changes what gets signed.
//
// Verifier is the receiving side: it checks a bearer token or a presigned
// URL against a KeyProvider.
package auth
