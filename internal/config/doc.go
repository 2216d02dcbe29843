// Package config loads, normalizes, and validates AudioFlip configuration data.
//
// It supplies XDG-based defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the PULSE_SERVER environment
// fallback. The Config type centralizes every knob the daemon and CLI need so
// both discover the state directory, socket, and audio backend in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
