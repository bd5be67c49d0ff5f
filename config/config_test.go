package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/observe"
	"github.com/jonwraymond/callrt/orchestrator"
	"github.com/jonwraymond/callrt/presign"
	"github.com/jonwraymond/callrt/secret"
)

const tomlFile = `
attempt_timeout = "2s"

[retry]
mode = "adaptive"
max_attempts = 5
initial_delay = "250ms"
max_delay = "10s"
jitter = true

[token_bucket]
capacity = 200
retry_cost = 4
timeout_retry_cost = 8

[observability]
service_name = "photos"
log_level = "debug"
`

const yamlFile = `
retry:
  max_attempts: 4
  initial_delay: 100ms
token_bucket:
  capacity: 50
presign:
  expires_in: 1h
signing:
  issuer: photos
  token_ttl: 5m
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	f := Default()
	require.NoError(t, f.Validate())
	assert.Equal(t, 500, f.TokenBucket.Capacity)
	assert.Equal(t, 5, f.TokenBucket.RetryCost)
	assert.Equal(t, 10, f.TokenBucket.TimeoutRetryCost)
	assert.Equal(t, "standard", f.Retry.Mode)
}

func TestParse_TOML(t *testing.T) {
	f, err := Parse([]byte(tomlFile), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "adaptive", f.Retry.Mode)
	assert.Equal(t, 5, f.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, f.Retry.InitialDelay)
	assert.Equal(t, 10*time.Second, f.Retry.MaxDelay)
	assert.True(t, f.Retry.Jitter)
	assert.Equal(t, 200, f.TokenBucket.Capacity)
	assert.Equal(t, 8, f.TokenBucket.TimeoutRetryCost)
	assert.Equal(t, 2*time.Second, f.AttemptTimeout)
	assert.Equal(t, "photos", f.Observability.ServiceName)

	// Untouched keys keep their defaults.
	assert.Equal(t, 2.0, f.Retry.Multiplier)
	assert.Equal(t, 1, f.TokenBucket.RegenerationAmount)
	require.NoError(t, f.Validate())
}

func TestParse_YAML(t *testing.T) {
	f, err := Parse([]byte(yamlFile), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, 4, f.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, f.Retry.InitialDelay)
	assert.Equal(t, 50, f.TokenBucket.Capacity)
	assert.Equal(t, time.Hour, f.Presign.ExpiresIn)
	assert.Equal(t, "photos", f.Signing.Issuer)
	assert.Equal(t, 5*time.Minute, f.SignerConfig().TokenTTL)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[retry]\nmax_atempts = 3\n"), FormatTOML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_atempts")
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse([]byte("{}"), "ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad_DetectsFormat(t *testing.T) {
	for _, name := range []string{"client.yaml", "client.yml", "client.conf"} {
		t.Run(name, func(t *testing.T) {
			f, err := Load(writeFile(t, name, yamlFile))
			require.NoError(t, err)
			assert.Equal(t, 4, f.Retry.MaxAttempts)
		})
	}

	f, err := Load(writeFile(t, "client.toml", tomlFile))
	require.NoError(t, err)
	assert.Equal(t, 5, f.Retry.MaxAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CALLRT_MAX_ATTEMPTS", "7")
	t.Setenv("CALLRT_RETRY_MODE", "standard")
	t.Setenv("CALLRT_TOKEN_BUCKET_CAPACITY", "42")
	t.Setenv("CALLRT_LOG_LEVEL", "warn")
	t.Setenv("CALLRT_ATTEMPT_TIMEOUT", "750ms")

	f, err := Load(writeFile(t, "client.toml", tomlFile))
	require.NoError(t, err)

	assert.Equal(t, 7, f.Retry.MaxAttempts)
	assert.Equal(t, "standard", f.Retry.Mode)
	assert.Equal(t, 42, f.TokenBucket.Capacity)
	assert.Equal(t, "warn", f.Observability.LogLevel)
	assert.Equal(t, 750*time.Millisecond, f.AttemptTimeout)
	assert.Equal(t, 250*time.Millisecond, f.Retry.InitialDelay, "file value without override survives")
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	f := Default()
	err := f.ApplyEnv(envOf(map[string]string{"CALLRT_MAX_ATTEMPTS": "many"}))
	assert.ErrorIs(t, err, ErrInvalidEnvValue)

	f = Default()
	require.NoError(t, f.ApplyEnv(noEnv))
	assert.Equal(t, Default(), f)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
		want   error
	}{
		{"unknown retry mode", func(f *File) { f.Retry.Mode = "legacy" }, orchestrator.ErrUnknownRetryMode},
		{"zero attempts", func(f *File) { f.Retry.MaxAttempts = 0 }, ErrInvalidAttempts},
		{"max below initial", func(f *File) { f.Retry.MaxDelay = time.Millisecond }, ErrInvalidDelay},
		{"zero capacity", func(f *File) { f.TokenBucket.Capacity = 0 }, ErrInvalidCapacity},
		{"timeout cost below retry cost", func(f *File) { f.TokenBucket.TimeoutRetryCost = 1 }, ErrInvalidRetryCost},
		{"zero rate", func(f *File) { f.RateLimit.Rate = 0 }, ErrInvalidRateLimit},
		{"negative attempt timeout", func(f *File) { f.AttemptTimeout = -time.Second }, ErrInvalidAttemptTTL},
		{"presign over a week", func(f *File) { f.Presign.ExpiresIn = 8 * 24 * time.Hour }, presign.ErrExpiresInTooLong},
		{"unknown log level", func(f *File) { f.Observability.LogLevel = "loud" }, observe.ErrInvalidLogLevel},
		{"unknown exporter", func(f *File) { f.Observability.TracingExporter = "zipkin" }, observe.ErrInvalidTracingExporter},
		{"negative max wait", func(f *File) { f.RateLimit.MaxWait = -time.Second }, ErrInvalidRateLimit},
		{"empty service name", func(f *File) { f.Observability.ServiceName = "" }, observe.ErrMissingServiceName},
		{"sample pct above one", func(f *File) {
			f.Observability.TracingExporter = "stdout"
			f.Observability.SamplePct = 1.5
		}, observe.ErrInvalidSamplePct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.mutate(&f)
			assert.ErrorIs(t, f.Validate(), tt.want)
		})
	}
}

func TestApply(t *testing.T) {
	f, err := Parse([]byte(tomlFile), FormatTOML)
	require.NoError(t, err)

	var cfg orchestrator.Config
	require.NoError(t, f.Apply(&cfg))

	assert.Equal(t, orchestrator.RetryModeAdaptive, cfg.RetryMode)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.True(t, cfg.Retry.Jitter)
	assert.Equal(t, 200, cfg.TokenBucket.Capacity)
	assert.Equal(t, 4, cfg.TokenBucket.RetryCost)
	assert.Equal(t, 2*time.Second, cfg.AttemptTimeout)

	client, err := orchestrator.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 200, client.TokenBucket().Capacity())
}

func TestObserveConfig(t *testing.T) {
	f := Default()
	oc := f.ObserveConfig()
	assert.False(t, oc.Tracing.Enabled)
	assert.False(t, oc.Metrics.Enabled)
	assert.Equal(t, "info", oc.Logging.Level)

	f.Observability.TracingExporter = "stdout"
	f.Observability.MetricsExporter = "prometheus"
	oc = f.ObserveConfig()
	assert.True(t, oc.Tracing.Enabled)
	assert.True(t, oc.Metrics.Enabled)
	require.NoError(t, oc.Validate())
}

func TestPresignWindow(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	f := Default()
	f.Presign.ExpiresIn = 45 * time.Minute

	w, err := f.PresignWindow(clock.NewStaticTimeSource(start))
	require.NoError(t, err)
	assert.Equal(t, start, w.StartTime())
	assert.Equal(t, start.Add(45*time.Minute), w.ExpiresAt())

	f.Presign.ExpiresIn = 0
	_, err = f.PresignWindow(nil)
	assert.ErrorIs(t, err, presign.ErrExpiresInRequired)
}

func TestCredentials_FromEnvRefs(t *testing.T) {
	f := Default()
	require.NoError(t, f.ApplyEnv(envOf(map[string]string{
		"CALLRT_ACCESS_KEY_ID": "AKID",
		"CALLRT_SECRET_KEY":    "secretref:env:PHOTOS_SECRET",
	})))
	require.NoError(t, f.Validate())

	lookup := envOf(map[string]string{"PHOTOS_SECRET": "wJalr"})
	r := secret.NewResolver(secret.ResolverConfig{Lookup: lookup}, secret.NewEnvProvider(lookup))
	p := f.CredentialsProvider(r, nil)
	require.NotNil(t, p)

	creds, err := p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
	assert.Equal(t, "wJalr", creds.SecretKey)
}

func TestCredentials_Unconfigured(t *testing.T) {
	f := Default()
	assert.Nil(t, f.CredentialsProvider(nil, nil))

	var cfg orchestrator.Config
	require.NoError(t, f.Apply(&cfg))
	assert.Nil(t, cfg.Credentials)
}

func TestCredentials_ValidateRequiresPair(t *testing.T) {
	f := Default()
	f.Credentials.AccessKeyID = "AKID"
	assert.ErrorIs(t, f.Validate(), auth.ErrMissingCredentials)
}

func TestApply_FillsCredentials(t *testing.T) {
	f := Default()
	f.Credentials.AccessKeyID = "AKID"
	f.Credentials.SecretKey = "plain-key"

	var cfg orchestrator.Config
	require.NoError(t, f.Apply(&cfg))
	require.NotNil(t, cfg.Credentials)

	creds, err := cfg.Credentials.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain-key", creds.SecretKey)
}

func TestApply_FailFastRateLimit(t *testing.T) {
	f := Default()
	require.NoError(t, f.ApplyEnv(envOf(map[string]string{
		"CALLRT_RETRY_MODE":           "adaptive",
		"CALLRT_RATE_LIMIT":           "1",
		"CALLRT_RATE_LIMIT_FAIL_FAST": "true",
	})))
	require.NoError(t, f.Validate())

	var cfg orchestrator.Config
	require.NoError(t, f.Apply(&cfg))
	assert.True(t, cfg.RateLimiter.FailFast)
	assert.Equal(t, time.Second, cfg.RateLimiter.MaxWait)

	client, err := orchestrator.New(cfg)
	require.NoError(t, err)
	require.NotNil(t, client.RateLimiter())
}
