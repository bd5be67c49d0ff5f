package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/callrt/clock"
)

var signingTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testCreds() Credentials {
	return Credentials{AccessKeyID: "AKID", SecretKey: "super-secret-key", Source: "test"}
}

func newSignedRequest(t *testing.T, s *BearerSigner, creds Credentials) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "https://api.example.com/v1/objects/42", nil)
	if err := s.Sign(context.Background(), req, creds, signingTime); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return req
}

func TestBearerSigner_Defaults(t *testing.T) {
	cfg := NewBearerSigner(BearerSignerConfig{}).Config()
	if cfg.HeaderName != "Authorization" {
		t.Errorf("HeaderName = %q, want Authorization", cfg.HeaderName)
	}
	if cfg.TokenPrefix != "Bearer " {
		t.Errorf("TokenPrefix = %q, want %q", cfg.TokenPrefix, "Bearer ")
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Errorf("TokenTTL = %v, want 15m", cfg.TokenTTL)
	}
}

func TestBearerSigner_SignSetsHeaders(t *testing.T) {
	creds := testCreds()
	creds.SessionToken = "session-1"
	req := newSignedRequest(t, NewBearerSigner(BearerSignerConfig{}), creds)

	if got := req.Header.Get(HeaderRequestTime); got != "2024-03-01T10:00:00Z" {
		t.Errorf("%s = %q, want 2024-03-01T10:00:00Z", HeaderRequestTime, got)
	}
	if got := req.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
		t.Errorf("Authorization = %q, want Bearer prefix", got)
	}
	if got := req.Header.Get(HeaderSessionToken); got != "session-1" {
		t.Errorf("%s = %q, want session-1", HeaderSessionToken, got)
	}
}

func TestBearerSigner_SignRejectsBadCredentials(t *testing.T) {
	s := NewBearerSigner(BearerSignerConfig{})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	if err := s.Sign(context.Background(), req, Credentials{}, signingTime); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Sign(empty) error = %v, want ErrMissingCredentials", err)
	}

	expired := testCreds()
	expired.Expiry = signingTime
	if err := s.Sign(context.Background(), req, expired, signingTime); !errors.Is(err, ErrCredentialsExpired) {
		t.Errorf("Sign(expired) error = %v, want ErrCredentialsExpired", err)
	}
}

func TestVerifier_RoundTrip(t *testing.T) {
	signer := NewBearerSigner(BearerSignerConfig{Issuer: "callrt", Audience: "objects"})
	req := newSignedRequest(t, signer, testCreds())

	v := NewVerifier(VerifierConfig{
		Issuer:     "callrt",
		Audience:   "objects",
		TimeSource: clock.NewStaticTimeSource(signingTime.Add(time.Minute)),
	}, NewCredentialsKeyProvider(NewStaticProvider("AKID", "super-secret-key", "")))

	claims, err := v.VerifyRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("VerifyRequest() error = %v", err)
	}
	if claims.Subject != "AKID" {
		t.Errorf("Subject = %q, want AKID", claims.Subject)
	}
	if claims.Method != http.MethodGet || claims.Path != "/v1/objects/42" {
		t.Errorf("claims bound to %s %s", claims.Method, claims.Path)
	}
	if !claims.IssuedAt.Time.Equal(signingTime) {
		t.Errorf("IssuedAt = %v, want %v", claims.IssuedAt.Time, signingTime)
	}
}

func TestVerifier_Failures(t *testing.T) {
	signer := NewBearerSigner(BearerSignerConfig{Issuer: "callrt"})
	keys := NewStaticKeyProvider([]byte("super-secret-key"))

	tests := []struct {
		name    string
		config  VerifierConfig
		keys    KeyProvider
		mutate  func(*http.Request)
		wantErr error
	}{
		{
			name:    "expired",
			config:  VerifierConfig{TimeSource: clock.NewStaticTimeSource(signingTime.Add(time.Hour))},
			keys:    keys,
			wantErr: ErrTokenExpired,
		},
		{
			name:    "wrong key",
			config:  VerifierConfig{TimeSource: clock.NewStaticTimeSource(signingTime)},
			keys:    NewStaticKeyProvider([]byte("other")),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong issuer",
			config:  VerifierConfig{Issuer: "someone-else", TimeSource: clock.NewStaticTimeSource(signingTime)},
			keys:    keys,
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "unknown key id",
			config:  VerifierConfig{TimeSource: clock.NewStaticTimeSource(signingTime)},
			keys:    NewCredentialsKeyProvider(NewStaticProvider("OTHER", "super-secret-key", "")),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "method mismatch",
			config:  VerifierConfig{TimeSource: clock.NewStaticTimeSource(signingTime)},
			keys:    keys,
			mutate:  func(r *http.Request) { r.Method = http.MethodDelete },
			wantErr: ErrRequestMismatch,
		},
		{
			name:    "malformed",
			config:  VerifierConfig{TimeSource: clock.NewStaticTimeSource(signingTime)},
			keys:    keys,
			mutate:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer not.a.jwt") },
			wantErr: ErrTokenMalformed,
		},
		{
			name:    "missing",
			config:  VerifierConfig{TimeSource: clock.NewStaticTimeSource(signingTime)},
			keys:    keys,
			mutate:  func(r *http.Request) { r.Header.Del("Authorization") },
			wantErr: ErrMissingCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newSignedRequest(t, signer, testCreds())
			if tt.mutate != nil {
				tt.mutate(req)
			}
			_, err := NewVerifier(tt.config, tt.keys).VerifyRequest(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyRequest() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
