// Package config loads, normalizes, and validates reeldesk configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as REELDESK_JWT_SECRET and PAYPAL_CLIENT_ID. The
// Config type centralizes every knob the daemon and CLI need so the data
// directory, token signing and external service credentials are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
