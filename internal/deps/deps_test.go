package deps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheck(t *testing.T) {
	binDir := t.TempDir()
	versioned := writeStub(t, binDir, "versioned", "echo 'versioned 2.1'\necho 'second line'\n")
	broken := writeStub(t, binDir, "broken", "exit 3\n")
	plain := writeStub(t, binDir, "plain", "exit 0\n")

	reqs := []Requirement{
		{Name: "Versioned", Command: versioned, VersionArgs: []string{"--version"}},
		{Name: "Broken", Command: broken, VersionArgs: []string{"--version"}},
		{Name: "Plain", Command: plain},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}
	results := Check(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	tests := []struct {
		available bool
		detail    string
	}{
		{true, "versioned 2.1"},
		{true, "version probe failed"},
		{true, ""},
		{false, `binary "clearly-not-present-binary" not found`},
		{false, "command not configured"},
	}
	for i, tt := range tests {
		got := results[i]
		if got.Available != tt.available {
			t.Fatalf("%s: expected available=%v, got %#v", reqs[i].Name, tt.available, got)
		}
		if tt.detail == "" && got.Detail != "" || !strings.HasPrefix(got.Detail, tt.detail) {
			t.Fatalf("%s: unexpected detail %q", reqs[i].Name, got.Detail)
		}
	}
}

func TestPactlRequirementResolvesOnPath(t *testing.T) {
	binDir := t.TempDir()
	pactl := writeStub(t, binDir, "pactl", "echo 'pactl 17.0'\necho 'Compiled with libpulse 17.0.0'\n")
	t.Setenv("PATH", binDir)

	status := Check(context.Background(), []Requirement{Pactl("pactl", false)})[0]
	if !status.Available || status.Optional {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.Command != pactl {
		t.Fatalf("expected resolved command %q, got %q", pactl, status.Command)
	}
	if status.Detail != "pactl 17.0" {
		t.Fatalf("unexpected version detail %q", status.Detail)
	}
}

func TestPactlRequirementMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	status := Check(context.Background(), []Requirement{Pactl("pactl", true)})[0]
	if status.Available || !status.Optional {
		t.Fatalf("unexpected status: %#v", status)
	}
	if !strings.Contains(status.Detail, "not found") {
		t.Fatalf("unexpected detail %q", status.Detail)
	}
}
