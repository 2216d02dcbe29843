// Package backends selects the configured audio backend.
package backends

import (
	"fmt"
	"time"

	"audioflip/internal/audio"
	"audioflip/internal/audio/memory"
	"audioflip/internal/audio/pactl"
	"audioflip/internal/audio/pulse"
	"audioflip/internal/config"
)

// New builds the backend named by cfg.Audio.Backend.
func New(cfg *config.Config) (audio.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	switch cfg.Audio.Backend {
	case config.BackendPulse:
		return pulse.New(cfg.Audio.ApplicationName, cfg.Audio.PulseServer), nil
	case config.BackendPactl:
		timeout := time.Duration(cfg.Audio.CommandTimeout) * time.Second
		return pactl.New(cfg.Audio.PactlBinary, cfg.Audio.PulseServer, timeout), nil
	case config.BackendMemory:
		return memory.Stub(), nil
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", cfg.Audio.Backend)
	}
}
