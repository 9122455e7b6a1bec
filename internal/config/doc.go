// Package config loads, normalizes, and validates audiopress configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AUDIOPRESS_PROXY_URL and AUDIOPRESS_FFMPEG. The Config type centralizes
// every knob the daemon and CLI need: working/completed directories, the
// API bind address, network timeouts and the optional proxy, external tool
// overrides, and the policy limits applied to every job.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
