package auth

import (
	"context"
	"fmt"
	"time"
)

// Credentials are the secrets a request is signed with.
type Credentials struct {
	AccessKeyID  string
	SecretKey    string
	SessionToken string

	// Expiry is when the credentials stop being valid. The zero value means
	// they never expire.
	Expiry time.Time

	// Source names the provider that produced the credentials.
	Source string
}

// Expires reports the expiry and whether there is one.
func (c Credentials) Expires() (time.Time, bool) {
	return c.Expiry, !c.Expiry.IsZero()
}

// ExpiredAt reports whether the credentials are expired at t.
func (c Credentials) ExpiredAt(t time.Time) bool {
	return !c.Expiry.IsZero() && !t.Before(c.Expiry)
}

// Validate checks that the key pair is present.
func (c Credentials) Validate() error {
	if c.AccessKeyID == "" || c.SecretKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// String implements fmt.Stringer without revealing secrets.
func (c Credentials) String() string {
	if exp, ok := c.Expires(); ok {
		return fmt.Sprintf("Credentials{id=%s source=%s expiry=%s}", c.AccessKeyID, c.Source, exp.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("Credentials{id=%s source=%s}", c.AccessKeyID, c.Source)
}

// CredentialsProvider resolves credentials for a call.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: must honor cancellation and deadlines.
//   - Errors: a provider with nothing to offer returns ErrMissingCredentials.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// ProviderFunc adapts a function to CredentialsProvider.
type ProviderFunc func(ctx context.Context) (Credentials, error)

// Credentials calls f.
func (f ProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// StaticProvider always returns the same credentials.
type StaticProvider struct {
	creds Credentials
}

// NewStaticProvider creates a provider for fixed credentials.
func NewStaticProvider(accessKeyID, secretKey, sessionToken string) *StaticProvider {
	return &StaticProvider{creds: Credentials{
		AccessKeyID:  accessKeyID,
		SecretKey:    secretKey,
		SessionToken: sessionToken,
		Source:       "static",
	}}
}

// Credentials returns the fixed credentials.
func (p *StaticProvider) Credentials(context.Context) (Credentials, error) {
	if err := p.creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return p.creds, nil
}

var (
	_ CredentialsProvider = (*StaticProvider)(nil)
	_ CredentialsProvider = ProviderFunc(nil)
)
