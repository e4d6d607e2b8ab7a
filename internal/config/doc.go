// Package config loads, normalizes, and validates gogvault's TOML
// configuration.
package config
