package main

import (
	"os"
	"path/filepath"
	"testing"

	"audioflip/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, cfg.Paths.SocketPath, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Audio backend")
	requireContains(t, out, "memory")
	requireContains(t, out, cfg.Paths.SocketPath)

	out, _, err = runCLI(t, []string{"config", "validate", "--probe"}, cfg.Paths.SocketPath, configPath)
	if err != nil {
		t.Fatalf("config validate --probe: %v", err)
	}
	requireContains(t, out, "Audio server (memory): 2 outputs, default stub-speaker")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, cfg.Paths.SocketPath, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, cfg.Paths.SocketPath, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[audio]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, "", path); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestConfigInitPreselectsBackend(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target, "--backend", "pactl"}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	requireContains(t, string(data), `backend = "pactl"`)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target + ".alt", "--backend", "alsa"}, "", ""); err == nil {
		t.Fatal("expected unknown backend to be rejected")
	}
}
