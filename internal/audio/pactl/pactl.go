// Package pactl implements the audio backend by running the pactl utility
// shipped with PulseAudio and pipewire-pulse.
package pactl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"audioflip/internal/audio"
)

// Executor abstracts command execution for the backend.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct {
	env []string
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	return cmd.Output()
}

// Backend drives pactl.
type Backend struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a backend for the given pactl binary. A non-empty server is
// passed to pactl through PULSE_SERVER.
func New(binary, server string, timeout time.Duration) *Backend {
	var env []string
	if server = strings.TrimSpace(server); server != "" {
		env = append(env, "PULSE_SERVER="+server)
	}
	return NewWithExecutor(binary, timeout, commandExecutor{env: env})
}

// NewWithExecutor allows injecting a custom executor for testing.
func NewWithExecutor(binary string, timeout time.Duration, exec Executor) *Backend {
	if exec == nil {
		exec = commandExecutor{}
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "pactl"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Backend{binary: binary, timeout: timeout, exec: exec}
}

func (b *Backend) Name() string { return "pactl" }

type sinkPort struct {
	Name         string `json:"name"`
	Availability string `json:"availability"`
}

type sinkInfo struct {
	Index       int        `json:"index"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ActivePort  string     `json:"active_port"`
	Ports       []sinkPort `json:"ports"`
}

// EnumerateOutputDevices parses `pactl --format=json list sinks`.
func (b *Backend) EnumerateOutputDevices(ctx context.Context) ([]audio.Endpoint, error) {
	output, err := b.run(ctx, "--format=json", "list", "sinks")
	if err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}
	return parseSinks(output)
}

func parseSinks(output []byte) ([]audio.Endpoint, error) {
	var sinks []sinkInfo
	if err := json.Unmarshal(bytes.TrimSpace(output), &sinks); err != nil {
		return nil, fmt.Errorf("%w: decode pactl sink list: %v", audio.ErrUnavailable, err)
	}
	endpoints := make([]audio.Endpoint, 0, len(sinks))
	for _, sink := range sinks {
		name := strings.TrimSpace(sink.Description)
		if name == "" {
			name = sink.Name
		}
		endpoints = append(endpoints, audio.Endpoint{
			ID:      sink.Name,
			Name:    name,
			Enabled: sink.portAvailable(),
		})
	}
	return endpoints, nil
}

// portAvailable reports false only when the active port is known to be
// unplugged. Sinks without ports (virtual sinks, HDMI without jack detection)
// stay enabled.
func (s sinkInfo) portAvailable() bool {
	if s.ActivePort == "" {
		return true
	}
	for _, port := range s.Ports {
		if port.Name == s.ActivePort {
			return port.Availability != "not available"
		}
	}
	return true
}

func (b *Backend) GetDefaultOutputDevice(ctx context.Context) (string, error) {
	output, err := b.run(ctx, "get-default-sink")
	if err != nil {
		return "", fmt.Errorf("get default sink: %w", err)
	}
	name := strings.TrimSpace(string(output))
	if name == "@DEFAULT_SINK@" {
		return "", nil
	}
	return name, nil
}

func (b *Backend) SetDefaultOutputDevice(ctx context.Context, id string) error {
	if _, err := b.run(ctx, "set-default-sink", id); err != nil {
		if errors.Is(err, audio.ErrUnavailable) {
			return fmt.Errorf("set default sink: %w", err)
		}
		return fmt.Errorf("set default sink %q: %w: %w", id, audio.ErrRejected, err)
	}
	return nil
}

func (b *Backend) run(ctx context.Context, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	output, err := b.exec.Run(runCtx, b.binary, args)
	if err == nil {
		return output, nil
	}
	return nil, classify(err)
}

// classify separates "pactl cannot reach a server" from other command failures.
func classify(err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", audio.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: pactl timed out", audio.ErrUnavailable)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := strings.TrimSpace(string(exitErr.Stderr))
		if strings.Contains(strings.ToLower(detail), "connection") {
			return fmt.Errorf("%w: %s", audio.ErrUnavailable, detail)
		}
		if detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
	}
	return err
}
