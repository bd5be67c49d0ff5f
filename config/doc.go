// Package config loads client settings from TOML or YAML files and
// environment variables and applies them to an orchestrator.Config.
//
// Precedence, lowest first: built-in defaults, the file, then environment
// variables prefixed with CALLRT_.
//
//	[retry]
//	mode = "adaptive"
//	max_attempts = 5
//	initial_delay = "500ms"
//
//	[token_bucket]
//	capacity = 200
//
// Unknown keys are rejected so that typos surface at load time.
package config
