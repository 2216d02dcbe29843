package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAudio()
	c.normalizeHotplug()
	c.normalizeLogging()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		c.API.Token = strings.TrimSpace(os.Getenv("AUDIOFLIP_API_TOKEN"))
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = Default().Paths.StateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath(c.Paths.StateDir)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAudio() {
	c.Audio.Backend = strings.ToLower(strings.TrimSpace(c.Audio.Backend))
	if c.Audio.Backend == "" {
		c.Audio.Backend = defaultBackend
	}
	c.Audio.PulseServer = strings.TrimSpace(c.Audio.PulseServer)
	if c.Audio.PulseServer == "" {
		if value, ok := os.LookupEnv("PULSE_SERVER"); ok {
			c.Audio.PulseServer = strings.TrimSpace(value)
		}
	}
	c.Audio.ApplicationName = strings.TrimSpace(c.Audio.ApplicationName)
	if c.Audio.ApplicationName == "" {
		c.Audio.ApplicationName = defaultApplicationName
	}
	c.Audio.PactlBinary = strings.TrimSpace(c.Audio.PactlBinary)
	if c.Audio.PactlBinary == "" {
		c.Audio.PactlBinary = defaultPactlBinary
	}
	if c.Audio.CommandTimeout <= 0 {
		c.Audio.CommandTimeout = defaultCommandTimeout
	}
}

func (c *Config) normalizeHotplug() {
	if c.Hotplug.EventBuffer <= 0 {
		c.Hotplug.EventBuffer = defaultHotplugBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
