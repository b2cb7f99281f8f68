// Package config loads, normalizes, and validates the TOML configuration
// shared by every scribe command. Configuration is read once at startup and
// treated as immutable for the lifetime of the process.
package config
