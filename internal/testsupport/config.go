package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"audioflip/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to the in-memory audio backend and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = shortSocketPath(t)
	cfgVal.Audio.Backend = config.BackendMemory
	cfgVal.Audio.PulseServer = ""
	cfgVal.Hotplug.Enabled = false
	cfgVal.API.Bind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// shortSocketPath keeps unix socket paths under the sun_path limit, which
// nested t.TempDir paths can exceed.
func shortSocketPath(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "af")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "audioflip.sock")
}

// WithBackend overrides the audio backend name.
func WithBackend(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.Backend = name
	}
}

// WithAPIBind enables the HTTP API on the given address.
func WithAPIBind(bind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Bind = bind
	}
}

// WithVerifyDelay sets the post-switch settle delay in milliseconds.
func WithVerifyDelay(millis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Switching.VerifyDelayMillis = millis
	}
}

// WithoutSystemLock disables the cross-process switch lock.
func WithoutSystemLock() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Switching.SystemLock = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, pactl is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"pactl"}
		}
		for _, name := range names {
			StubBinary(b.t, name, "#!/bin/sh\nexit 0\n")
		}
	}
}

// StubBinary writes an executable script named name into a temp bin
// directory and prepends that directory to PATH for the rest of the test.
func StubBinary(t testing.TB, name, script string) string {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
