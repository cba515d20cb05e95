// Package config loads, validates, and normalizes the TOML configuration
// used by the greenlight CLI and worker. Values resolve in order: built-in
// defaults, then the configuration file. Paths are expanded and made
// absolute during normalization.
package config
