// Package config loads, validates, and normalizes Corsair configuration from
// TOML. Defaults are applied first, then overridden by the config file when
// one exists.
package config
