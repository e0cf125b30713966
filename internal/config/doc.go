// Package config handles configuration loading, parsing, and validation
// from environment variables (STUDY_ prefix) and an optional YAML file. It
// provides type-safe access to server, store, scheduler and reminder settings
// while keeping configuration details separate from business logic.
package config
