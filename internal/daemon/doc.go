// Package daemon coordinates the long-running AudioFlip process.
//
// It wires configuration, the preferences/history store, the audio backend,
// and the switch coordinator into a single lifecycle with flock-based locking
// to prevent multiple instances. The daemon also owns the hot-plug watcher and
// the optional HTTP API, and reports dependency health for status output.
//
// Keep orchestration logic here: switching semantics live in the switcher
// package while the daemon focuses on startup, shutdown, and exposure.
package daemon
