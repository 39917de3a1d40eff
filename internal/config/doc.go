// Package config handles configuration loading, parsing, and validation
// from environment variables (LEXIS_ prefix) and an optional config.yaml.
// It provides type-safe access to server, database, auth and engine
// settings while keeping configuration details separate from the
// scheduling logic.
package config
