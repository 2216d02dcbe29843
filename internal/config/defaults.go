package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	defaultBackend           = BackendPulse
	defaultApplicationName   = "AudioFlip"
	defaultPactlBinary       = "pactl"
	defaultCommandTimeout    = 5
	defaultVerifyDelayMillis = 0
	defaultHotplugBuffer     = 256
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
)

// Supported audio backends.
const (
	BackendPulse  = "pulse"
	BackendPactl  = "pactl"
	BackendMemory = "memory"
)

// Default returns a Config populated with repository defaults. Directory
// defaults follow the XDG base directory layout of the current environment.
func Default() Config {
	xdg.Reload()
	stateDir := filepath.Join(xdg.StateHome, "audioflip")
	return Config{
		Paths: Paths{
			StateDir:   stateDir,
			LogDir:     filepath.Join(stateDir, "logs"),
			SocketPath: defaultSocketPath(stateDir),
		},
		Audio: Audio{
			Backend:         defaultBackend,
			ApplicationName: defaultApplicationName,
			PactlBinary:     defaultPactlBinary,
			CommandTimeout:  defaultCommandTimeout,
		},
		Switching: Switching{
			VerifyDelayMillis: defaultVerifyDelayMillis,
			SystemLock:        true,
		},
		Hotplug: Hotplug{
			Enabled:     true,
			EventBuffer: defaultHotplugBuffer,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// defaultSocketPath prefers $XDG_RUNTIME_DIR when the session provides one.
func defaultSocketPath(stateDir string) string {
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		return filepath.Join(runtimeDir, "audioflip.sock")
	}
	return filepath.Join(stateDir, "audioflip.sock")
}
