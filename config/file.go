package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/observe"
	"github.com/jonwraymond/callrt/orchestrator"
	"github.com/jonwraymond/callrt/presign"
	"github.com/jonwraymond/callrt/resilience"
	"github.com/jonwraymond/callrt/secret"
)

// File is the file and environment representation of client settings.
type File struct {
	Retry          Retry         `mapstructure:"retry"`
	TokenBucket    TokenBucket   `mapstructure:"token_bucket"`
	RateLimit      RateLimit     `mapstructure:"rate_limit"`
	Signing        Signing       `mapstructure:"signing"`
	Credentials    Credentials   `mapstructure:"credentials"`
	Presign        Presign       `mapstructure:"presign"`
	Observability  Observability `mapstructure:"observability"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// Retry holds retry settings.
type Retry struct {
	Mode         string        `mapstructure:"mode"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	Jitter       bool          `mapstructure:"jitter"`
}

// TokenBucket holds retry token bucket settings.
type TokenBucket struct {
	Capacity           int `mapstructure:"capacity"`
	RetryCost          int `mapstructure:"retry_cost"`
	TimeoutRetryCost   int `mapstructure:"timeout_retry_cost"`
	RegenerationAmount int `mapstructure:"regeneration_amount"`
}

// RateLimit holds the adaptive retry mode limiter settings.
type RateLimit struct {
	Rate     float64       `mapstructure:"rate"`
	Burst    int           `mapstructure:"burst"`
	MinRate  float64       `mapstructure:"min_rate"`
	FailFast bool          `mapstructure:"fail_fast"`
	MaxWait  time.Duration `mapstructure:"max_wait"`
}

// Signing holds bearer signer settings.
type Signing struct {
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// Credentials names the signing credentials. Values may be plain text,
// ${VAR} expansions or secretref:<provider>:<ref> references.
type Credentials struct {
	AccessKeyID   string        `mapstructure:"access_key_id"`
	SecretKey     string        `mapstructure:"secret_key"`
	SessionToken  string        `mapstructure:"session_token"`
	RefreshBefore time.Duration `mapstructure:"refresh_before"`
}

// Configured reports whether any credential value is set.
func (c Credentials) Configured() bool {
	return c.AccessKeyID != "" || c.SecretKey != "" || c.SessionToken != ""
}

// Presign holds the default presigning window.
type Presign struct {
	ExpiresIn time.Duration `mapstructure:"expires_in"`
}

// Observability holds telemetry settings.
type Observability struct {
	ServiceName     string  `mapstructure:"service_name"`
	Version         string  `mapstructure:"version"`
	LogLevel        string  `mapstructure:"log_level"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplePct       float64 `mapstructure:"sample_pct"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
}

// Default returns the built-in settings.
func Default() File {
	return File{
		Retry: Retry{
			Mode:         string(orchestrator.RetryModeStandard),
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     20 * time.Second,
			Multiplier:   2,
		},
		TokenBucket: TokenBucket{
			Capacity:           resilience.DefaultCapacity,
			RetryCost:          resilience.DefaultRetryCost,
			TimeoutRetryCost:   resilience.DefaultTimeoutRetryCost,
			RegenerationAmount: resilience.DefaultRegenerationAmount,
		},
		RateLimit: RateLimit{Rate: 100, Burst: 10, MinRate: 0.5, MaxWait: time.Second},
		Signing:   Signing{TokenTTL: 15 * time.Minute},
		Credentials: Credentials{
			RefreshBefore: 5 * time.Minute,
		},
		Presign: Presign{ExpiresIn: 15 * time.Minute},
		Observability: Observability{
			ServiceName:     "callrt",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "none",
		},
	}
}

// Validate checks the settings for values the runtime would reject or
// silently replace.
func (f File) Validate() error {
	if _, err := orchestrator.ParseRetryMode(f.Retry.Mode); err != nil {
		return err
	}
	if f.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAttempts, f.Retry.MaxAttempts)
	}
	if f.Retry.InitialDelay < 0 || f.Retry.MaxDelay < f.Retry.InitialDelay {
		return fmt.Errorf("%w: initial %v, max %v", ErrInvalidDelay, f.Retry.InitialDelay, f.Retry.MaxDelay)
	}
	if f.TokenBucket.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, f.TokenBucket.Capacity)
	}
	if f.TokenBucket.RetryCost <= 0 || f.TokenBucket.TimeoutRetryCost < f.TokenBucket.RetryCost {
		return fmt.Errorf("%w: retry_cost %d, timeout_retry_cost %d",
			ErrInvalidRetryCost, f.TokenBucket.RetryCost, f.TokenBucket.TimeoutRetryCost)
	}
	if f.RateLimit.Rate <= 0 || f.RateLimit.Burst <= 0 || f.RateLimit.MinRate < 0 || f.RateLimit.MaxWait < 0 {
		return fmt.Errorf("%w: rate %v, burst %d, min_rate %v, max_wait %v",
			ErrInvalidRateLimit, f.RateLimit.Rate, f.RateLimit.Burst, f.RateLimit.MinRate, f.RateLimit.MaxWait)
	}
	if f.Credentials.Configured() && (f.Credentials.AccessKeyID == "" || f.Credentials.SecretKey == "") {
		return fmt.Errorf("%w: credentials need access_key_id and secret_key", auth.ErrMissingCredentials)
	}
	if f.AttemptTimeout < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAttemptTTL, f.AttemptTimeout)
	}
	if f.Presign.ExpiresIn > presign.MaxExpiresIn {
		return fmt.Errorf("%w: presign.expires_in %v", presign.ErrExpiresInTooLong, f.Presign.ExpiresIn)
	}
	if !slices.Contains(observe.ValidLogLevels, f.Observability.LogLevel) {
		return fmt.Errorf("%w: %q", observe.ErrInvalidLogLevel, f.Observability.LogLevel)
	}
	oc := f.ObserveConfig()
	return oc.Validate()
}

// Apply copies the settings onto cfg, leaving its other fields alone.
// Configured credentials fill cfg.Credentials only when it is nil.
func (f File) Apply(cfg *orchestrator.Config) error {
	mode, err := orchestrator.ParseRetryMode(f.Retry.Mode)
	if err != nil {
		return err
	}
	cfg.RetryMode = mode
	cfg.Retry.MaxAttempts = f.Retry.MaxAttempts
	cfg.Retry.InitialDelay = f.Retry.InitialDelay
	cfg.Retry.MaxDelay = f.Retry.MaxDelay
	cfg.Retry.Multiplier = f.Retry.Multiplier
	cfg.Retry.Jitter = f.Retry.Jitter

	cfg.TokenBucket.Capacity = f.TokenBucket.Capacity
	cfg.TokenBucket.RetryCost = f.TokenBucket.RetryCost
	cfg.TokenBucket.TimeoutRetryCost = f.TokenBucket.TimeoutRetryCost
	cfg.TokenBucket.RegenerationAmount = f.TokenBucket.RegenerationAmount

	cfg.RateLimiter.Rate = f.RateLimit.Rate
	cfg.RateLimiter.Burst = f.RateLimit.Burst
	cfg.RateLimiter.MinRate = f.RateLimit.MinRate
	cfg.RateLimiter.FailFast = f.RateLimit.FailFast
	cfg.RateLimiter.MaxWait = f.RateLimit.MaxWait

	cfg.AttemptTimeout = f.AttemptTimeout
	if cfg.Credentials == nil {
		if p := f.CredentialsProvider(nil, cfg.TimeSource); p != nil {
			cfg.Credentials = p
		}
	}
	return nil
}

// ObserveConfig returns the observer settings. Tracing and metrics are
// enabled when an exporter other than "none" is named.
func (f File) ObserveConfig() observe.Config {
	o := f.Observability
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingExporter != "" && o.TracingExporter != "none",
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsExporter != "" && o.MetricsExporter != "none",
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
	}
}

// SignerConfig returns the bearer signer settings.
func (f File) SignerConfig() auth.BearerSignerConfig {
	return auth.BearerSignerConfig{
		Issuer:   f.Signing.Issuer,
		Audience: f.Signing.Audience,
		TokenTTL: f.Signing.TokenTTL,
	}
}

// CredentialsProvider returns a cached provider resolving the configured
// credentials through r, or nil when none are configured. A nil r resolves
// env and file references against the process environment.
func (f File) CredentialsProvider(r *secret.Resolver, ts clock.TimeSource) auth.CredentialsProvider {
	if !f.Credentials.Configured() {
		return nil
	}
	if r == nil {
		r = secret.NewResolver(secret.ResolverConfig{Strict: true},
			secret.NewEnvProvider(nil), secret.NewFileProvider())
	}
	source := secret.NewCredentialsProvider(r, secret.CredentialRefs{
		AccessKeyID:  f.Credentials.AccessKeyID,
		SecretKey:    f.Credentials.SecretKey,
		SessionToken: f.Credentials.SessionToken,
	})
	return auth.NewCachingProvider(source, auth.CachingProviderConfig{
		RefreshBefore: f.Credentials.RefreshBefore,
		TimeSource:    ts,
	})
}

// PresignWindow builds the default presigning window starting now on ts.
// A zero expires_in counts as unset.
func (f File) PresignWindow(ts clock.TimeSource) (presign.Config, error) {
	b := presign.Builder().TimeSource(ts)
	if f.Presign.ExpiresIn != 0 {
		b = b.ExpiresIn(f.Presign.ExpiresIn)
	}
	return b.Build()
}
