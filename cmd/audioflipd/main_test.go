package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[paths]\nstate_dir = \"" + filepath.Join(dir, "state") + "\"\n\n[audio]\nbackend = \"memory\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Audio.Backend != "memory" || cfg.Paths.StateDir != filepath.Join(dir, "state") {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestCommandRejectsArgs(t *testing.T) {
	cmd := newCommand()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
