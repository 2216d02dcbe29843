package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Audio selects and configures the OS audio backend.
type Audio struct {
	// Backend is one of "pulse", "pactl", or "memory".
	Backend         string `toml:"backend"`
	PulseServer     string `toml:"pulse_server"`
	ApplicationName string `toml:"application_name"`
	PactlBinary     string `toml:"pactl_binary"`
	CommandTimeout  int    `toml:"command_timeout"`
}

// Switching tunes the switch coordinator.
type Switching struct {
	// VerifyDelayMillis is slept between issuing a switch and re-querying the
	// default device, for backends that apply the change asynchronously.
	VerifyDelayMillis int `toml:"verify_delay_ms"`
	// SystemLock shares the switch lock with other AudioFlip processes through
	// an advisory file lock in the state directory.
	SystemLock bool `toml:"system_lock"`
}

// Hotplug configures the udev device watcher.
type Hotplug struct {
	Enabled     bool `toml:"enabled"`
	EventBuffer int  `toml:"event_buffer"`
}

// API configures the optional HTTP API. An empty bind disables it.
type API struct {
	Bind string `toml:"bind"`
	// Token, when set, is required as "Authorization: Bearer <token>".
	Token string `toml:"token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for AudioFlip.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Audio     Audio     `toml:"audio"`
	Switching Switching `toml:"switching"`
	Hotplug   Hotplug   `toml:"hotplug"`
	API       API       `toml:"api"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	xdg.Reload()
	return expandPath(filepath.Join(xdg.ConfigHome, "audioflip", "config.toml"))
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The string result is the resolved
// config path and the bool reports whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	// Paths left unset in the file derive from whatever state_dir resolves to.
	cfg.Paths = Paths{}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("audioflip.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Paths.SocketPath)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding rotation preferences and switch history.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "audioflip.db")
}

// DaemonLockPath guards single-instance daemon execution.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "audioflipd.lock")
}

// SwitchLockPath is the advisory lock shared by processes that switch devices.
// It is empty when the system lock is disabled.
func (c *Config) SwitchLockPath() string {
	if !c.Switching.SystemLock {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "switch.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration to path. A non-empty backend
// replaces the sample's default audio backend.
func CreateSample(path, backend string) error {
	content := sampleConfig
	if backend = strings.ToLower(strings.TrimSpace(backend)); backend != "" {
		switch backend {
		case BackendPulse, BackendPactl, BackendMemory:
		default:
			return fmt.Errorf("unknown audio backend %q (want %s, %s, or %s)", backend, BackendPulse, BackendPactl, BackendMemory)
		}
		content = strings.Replace(content, fmt.Sprintf("backend = %q", defaultBackend), fmt.Sprintf("backend = %q", backend), 1)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
