package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: implementations must not include secret values in errors.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves references as environment variable names.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates the "env" provider. A nil lookup uses
// os.LookupEnv.
func NewEnvProvider(lookup func(string) (string, bool)) *EnvProvider {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvProvider{lookup: lookup}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the variable's value.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves references as file paths, for secrets mounted into
// the filesystem. Surrounding whitespace is trimmed.
type FileProvider struct{}

// NewFileProvider creates the "file" provider.
func NewFileProvider() *FileProvider { return &FileProvider{} }

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the file at ref.
func (p *FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Close is a no-op.
func (p *FileProvider) Close() error { return nil }

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
