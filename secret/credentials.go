package secret

import (
	"context"
	"fmt"

	"github.com/jonwraymond/callrt/auth"
)

// CredentialRefs are the configured values of a credential set. Each may
// be plain text, an environment expansion or a secret reference.
type CredentialRefs struct {
	AccessKeyID  string
	SecretKey    string
	SessionToken string
}

// CredentialsProvider resolves CredentialRefs on every call. Wrap it in an
// auth.CachingProvider to avoid resolving per request.
type CredentialsProvider struct {
	resolver *Resolver
	refs     CredentialRefs
}

// NewCredentialsProvider creates a provider resolving refs through r.
func NewCredentialsProvider(r *Resolver, refs CredentialRefs) *CredentialsProvider {
	return &CredentialsProvider{resolver: r, refs: refs}
}

// Credentials resolves the configured values.
func (p *CredentialsProvider) Credentials(ctx context.Context) (auth.Credentials, error) {
	id, err := p.resolver.Resolve(ctx, p.refs.AccessKeyID)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("resolve access key id: %w", err)
	}
	key, err := p.resolver.Resolve(ctx, p.refs.SecretKey)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("resolve secret key: %w", err)
	}
	var token string
	if p.refs.SessionToken != "" {
		if token, err = p.resolver.Resolve(ctx, p.refs.SessionToken); err != nil {
			return auth.Credentials{}, fmt.Errorf("resolve session token: %w", err)
		}
	}

	creds := auth.Credentials{
		AccessKeyID:  id,
		SecretKey:    key,
		SessionToken: token,
		Source:       "secret",
	}
	if err := creds.Validate(); err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}

var _ auth.CredentialsProvider = (*CredentialsProvider)(nil)
