package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

var inlineRefPattern = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Strict rejects empty values returned by providers.
	// Default: false
	Strict bool

	// Lookup reads environment variables for expansion.
	// Default: os.LookupEnv
	Lookup func(string) (string, bool)
}

// Resolver expands environment variables and resolves secret references
// through registered providers.
//
// Contract:
//   - Concurrency: register providers before sharing; Resolve is then safe
//     for concurrent use.
type Resolver struct {
	config    ResolverConfig
	providers map[string]Provider
}

// NewResolver creates a resolver with providers registered by name.
func NewResolver(config ResolverConfig, providers ...Provider) *Resolver {
	r := &Resolver{config: config, providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider.
func (r *Resolver) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// ParseRef splits a full "secretref:<provider>:<ref>" value.
func ParseRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// Resolve expands value and resolves the references in it.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	expanded, err := Expand(value, r.config.Lookup)
	if err != nil {
		return "", err
	}
	if provider, ref, ok := ParseRef(expanded); ok {
		return r.resolveRef(ctx, provider, ref)
	}
	if strings.HasPrefix(expanded, refPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, expanded)
	}
	return r.resolveInline(ctx, expanded)
}

func (r *Resolver) resolveRef(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret: provider %q: %w", name, err)
	}
	if r.config.Strict && v == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, name)
	}
	return v, nil
}

// resolveInline replaces references embedded in a longer value, from the
// last to the first so earlier match offsets stay valid.
func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineRefPattern.FindAllStringSubmatchIndex(value, -1)
	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		v, err := r.resolveRef(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + v + out[m[1]:]
	}
	return out, nil
}

// Close closes every registered provider.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
