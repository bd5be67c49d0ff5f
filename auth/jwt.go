package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/presign"
)

// Names of the headers and query parameters written by BearerSigner.
const (
	HeaderRequestTime  = "X-Request-Time"
	HeaderSessionToken = "X-Session-Token"
	QueryToken         = "X-Auth-Token"
	QuerySessionToken  = "X-Session-Token"
)

// RequestClaims are the JWT claims that bind a token to one request.
type RequestClaims struct {
	jwt.RegisteredClaims
	Method string `json:"mth"`
	Host   string `json:"hst,omitempty"`
	Path   string `json:"pth"`
}

// Signer signs a request in place.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Ownership: Sign mutates req headers only.
//   - Errors: invalid or expired credentials return ErrMissingCredentials or
//     ErrCredentialsExpired.
type Signer interface {
	Sign(ctx context.Context, req *http.Request, creds Credentials, signingTime time.Time) error
}

// Presigner produces a presigned copy of a request.
type Presigner interface {
	Presign(ctx context.Context, req *http.Request, creds Credentials, window presign.Config) (*presign.PresignedRequest, error)
}

// BearerSignerConfig configures a BearerSigner.
type BearerSignerConfig struct {
	// Issuer is written to the iss claim.
	Issuer string

	// Audience is written to the aud claim.
	Audience string

	// HeaderName is the header receiving the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is written before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// TokenTTL is the lifetime of header tokens.
	// Default: 15 minutes
	TokenTTL time.Duration
}

// BearerSigner signs requests with HS256 JWTs keyed by the credentials'
// secret key. The token's kid is the access key ID and its iat and nbf are
// the signing time.
type BearerSigner struct {
	config BearerSignerConfig
}

// NewBearerSigner creates a BearerSigner.
func NewBearerSigner(config BearerSignerConfig) *BearerSigner {
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 15 * time.Minute
	}
	return &BearerSigner{config: config}
}

// Config returns the effective configuration.
func (s *BearerSigner) Config() BearerSignerConfig {
	return s.config
}

func (s *BearerSigner) token(req *http.Request, creds Credentials, notBefore, expires time.Time) (string, error) {
	claims := RequestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   creds.AccessKeyID,
			IssuedAt:  jwt.NewNumericDate(notBefore),
			NotBefore: jwt.NewNumericDate(notBefore),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Method: req.Method,
		Host:   req.URL.Host,
		Path:   req.URL.EscapedPath(),
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = creds.AccessKeyID
	signed, err := token.SignedString([]byte(creds.SecretKey))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Sign sets the request-time, authorization and session-token headers.
func (s *BearerSigner) Sign(_ context.Context, req *http.Request, creds Credentials, signingTime time.Time) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if creds.ExpiredAt(signingTime) {
		return fmt.Errorf("%w: expired at %s", ErrCredentialsExpired, creds.Expiry.UTC().Format(time.RFC3339))
	}

	token, err := s.token(req, creds, signingTime, signingTime.Add(s.config.TokenTTL))
	if err != nil {
		return err
	}
	req.Header.Set(HeaderRequestTime, signingTime.UTC().Format(time.RFC3339))
	req.Header.Set(s.config.HeaderName, s.config.TokenPrefix+token)
	if creds.SessionToken != "" {
		req.Header.Set(HeaderSessionToken, creds.SessionToken)
	}
	return nil
}

// Presign returns a copy of req whose URL carries a token valid for the
// given window. Credentials that expire before the window closes are
// rejected, whatever the window itself allows.
func (s *BearerSigner) Presign(_ context.Context, req *http.Request, creds Credentials, window presign.Config) (*presign.PresignedRequest, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if exp, ok := creds.Expires(); ok && exp.Before(window.ExpiresAt()) {
		return nil, fmt.Errorf("%w: credentials expire at %s, presigned request at %s",
			ErrCredentialsExpireBeforeWindow,
			exp.UTC().Format(time.RFC3339),
			window.ExpiresAt().UTC().Format(time.RFC3339))
	}

	token, err := s.token(req, creds, window.StartTime(), window.ExpiresAt())
	if err != nil {
		return nil, err
	}

	u := *req.URL
	q := u.Query()
	q.Set(QueryToken, token)
	if creds.SessionToken != "" {
		q.Set(QuerySessionToken, creds.SessionToken)
	}
	u.RawQuery = q.Encode()

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del(s.config.HeaderName)
	header.Set(HeaderRequestTime, window.StartTime().UTC().Format(time.RFC3339))
	return presign.NewPresignedRequest(req.Method, &u, header), nil
}

// KeyProvider retrieves signing keys for verification.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	return p.key, nil
}

// CredentialsKeyProvider serves the secret key of the credentials a
// provider returns, when the key ID matches their access key ID.
type CredentialsKeyProvider struct {
	source CredentialsProvider
}

// NewCredentialsKeyProvider creates a key provider backed by source.
func NewCredentialsKeyProvider(source CredentialsProvider) *CredentialsKeyProvider {
	return &CredentialsKeyProvider{source: source}
}

// GetKey returns the secret key for keyID.
func (p *CredentialsKeyProvider) GetKey(ctx context.Context, keyID string) (any, error) {
	creds, err := p.source.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	if creds.AccessKeyID != keyID {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return []byte(creds.SecretKey), nil
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Issuer is the expected iss claim. Empty skips the check.
	Issuer string

	// Audience is the expected aud claim. Empty skips the check.
	Audience string

	// HeaderName is the header carrying the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// Leeway tolerates clock skew on exp and nbf.
	// Default: 0
	Leeway time.Duration

	// TimeSource is the verifier's clock.
	// Default: clock.SystemClock
	TimeSource clock.TimeSource
}

// Verifier checks tokens produced by BearerSigner.
type Verifier struct {
	config VerifierConfig
	keys   KeyProvider
}

// NewVerifier creates a Verifier.
func NewVerifier(config VerifierConfig, keys KeyProvider) *Verifier {
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.TimeSource == nil {
		config.TimeSource = clock.SystemClock{}
	}
	return &Verifier{config: config, keys: keys}
}

// VerifyToken validates the token's signature, lifetime, issuer and
// audience, and returns its claims.
func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*RequestClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.config.TimeSource.Now),
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	claims := &RequestClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.keys.GetKey(ctx, kid)
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
}

// VerifyRequest finds the token in the configured header or, for presigned
// requests, in the query, verifies it, and checks that it was issued for
// this request's method and path.
func (v *Verifier) VerifyRequest(ctx context.Context, r *http.Request) (*RequestClaims, error) {
	token := r.URL.Query().Get(QueryToken)
	if h := r.Header.Get(v.config.HeaderName); h != "" {
		if !strings.HasPrefix(h, v.config.TokenPrefix) {
			return nil, ErrMissingCredentials
		}
		token = strings.TrimSpace(strings.TrimPrefix(h, v.config.TokenPrefix))
	}
	if token == "" {
		return nil, ErrMissingCredentials
	}

	claims, err := v.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.Method != r.Method || claims.Path != r.URL.EscapedPath() {
		return nil, fmt.Errorf("%w: signed for %s %s", ErrRequestMismatch, claims.Method, claims.Path)
	}
	return claims, nil
}

var (
	_ Signer      = (*BearerSigner)(nil)
	_ Presigner   = (*BearerSigner)(nil)
	_ KeyProvider = (*StaticKeyProvider)(nil)
	_ KeyProvider = (*CredentialsKeyProvider)(nil)
)
