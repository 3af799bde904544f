// Package config loads, normalizes, and validates longbox configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COMICVINE_API_KEY. The Config type centralizes every knob the approval engine
// and CLI need, so the library directory, session timing, and external service
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
