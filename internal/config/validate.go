package config

import (
	"errors"
	"fmt"
	"net"
)

const maxVerifyDelayMillis = 10_000

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateSwitching(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAudio() error {
	switch c.Audio.Backend {
	case BackendPulse, BackendPactl, BackendMemory:
	default:
		return fmt.Errorf("audio.backend: unsupported value %q (want %s, %s, or %s)",
			c.Audio.Backend, BackendPulse, BackendPactl, BackendMemory)
	}
	if c.Audio.CommandTimeout <= 0 {
		return errors.New("audio.command_timeout must be positive")
	}
	return nil
}

func (c *Config) validateSwitching() error {
	if c.Switching.VerifyDelayMillis < 0 || c.Switching.VerifyDelayMillis > maxVerifyDelayMillis {
		return fmt.Errorf("switching.verify_delay_ms must be between 0 and %d", maxVerifyDelayMillis)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
