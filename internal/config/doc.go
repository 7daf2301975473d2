// Package config loads, normalizes, and validates hlsladder configuration data.
//
// It supplies repository defaults (including the low/medium/high/full
// rendition ladder), expands user paths, reads TOML files, loads an optional
// .env file, and honours environment fallbacks for object-storage credentials
// and the public base URL. The Config type centralizes every knob the CLI and
// pipeline need so they can be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
