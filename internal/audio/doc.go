// Package audio defines the OS audio backend contract used by the switch
// coordinator.
//
// Backends live in subpackages: pulse speaks the PulseAudio native protocol
// (also served by pipewire-pulse), pactl shells out to the pactl utility, and
// memory is an in-process device set for tests and headless setups. Package
// backends picks one from configuration.
package audio
