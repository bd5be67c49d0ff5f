package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Supported file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CALLRT_"

// envPaths maps environment variable names, without the prefix, to the
// dotted key they override.
var envPaths = map[string]string{
	"RETRY_MODE":                "retry.mode",
	"MAX_ATTEMPTS":              "retry.max_attempts",
	"INITIAL_DELAY":             "retry.initial_delay",
	"MAX_DELAY":                 "retry.max_delay",
	"JITTER":                    "retry.jitter",
	"TOKEN_BUCKET_CAPACITY":     "token_bucket.capacity",
	"RETRY_COST":                "token_bucket.retry_cost",
	"TIMEOUT_RETRY_COST":        "token_bucket.timeout_retry_cost",
	"RATE_LIMIT":                "rate_limit.rate",
	"RATE_LIMIT_FAIL_FAST":      "rate_limit.fail_fast",
	"ATTEMPT_TIMEOUT":           "attempt_timeout",
	"PRESIGN_EXPIRES_IN":        "presign.expires_in",
	"SIGNING_ISSUER":            "signing.issuer",
	"ACCESS_KEY_ID":             "credentials.access_key_id",
	"SECRET_KEY":                "credentials.secret_key",
	"SESSION_TOKEN":             "credentials.session_token",
	"LOG_LEVEL":                 "observability.log_level",
	"SERVICE_NAME":              "observability.service_name",
	"TRACING_EXPORTER":          "observability.tracing_exporter",
	"METRICS_EXPORTER":          "observability.metrics_exporter",
	"TRACING_SAMPLE_PERCENTAGE": "observability.sample_pct",
}

// Load reads path, applies environment overrides from the process
// environment and validates the result.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data, detectFormat(path, data))
	if err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// FromEnv returns the defaults overridden by the process environment.
func FromEnv() (File, error) {
	f := Default()
	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Parse decodes data in the given format over the defaults. It does not
// validate.
func Parse(data []byte, format string) (File, error) {
	raw := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return File{}, fmt.Errorf("parse TOML: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return File{}, fmt.Errorf("parse YAML: %w", err)
		}
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	f := Default()
	if err := decode(raw, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

// ApplyEnv overrides settings with CALLRT_* variables found by lookup.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := make(map[string]any)
	for name, path := range envPaths {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		setNested(overrides, path, v)
	}
	if len(overrides) == 0 {
		return nil
	}
	if err := decode(overrides, f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvValue, err)
	}
	return nil
}

// decode writes raw onto target, keeping fields raw does not mention.
func decode(raw map[string]any, target *File) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

func setNested(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// detectFormat picks the format from the file extension, then from the
// content.
func detectFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	}
	var sniffed map[string]any
	if err := toml.Unmarshal(data, &sniffed); err == nil {
		return FormatTOML
	}
	if err := yaml.Unmarshal(data, &sniffed); err == nil {
		return FormatYAML
	}
	return ""
}
