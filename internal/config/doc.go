// Package config loads, normalizes, and validates captionsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file next to the
// config, and honours environment fallbacks for vendor credentials such as
// BUNNY_API_KEY and DEEPGRAM_API_KEY. The Config type centralizes every knob
// the CLI, the HTTP server, and the refresh job need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical language lists, and clear validation errors.
package config
