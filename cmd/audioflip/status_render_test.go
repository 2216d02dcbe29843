package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"audioflip/internal/api"
	"audioflip/internal/daemonctl"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	line := daemonctl.StatusLine{Label: "AudioFlip", Severity: daemonctl.SeverityError, Detail: "Not running"}
	got := renderStatusLine(line, false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "AudioFlip:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine(daemonctl.StatusLine{Label: "AudioFlip", Severity: daemonctl.SeverityOK, Detail: "Running"}, true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line with reset, got %q", got)
	}
}

func TestRenderStatusLineUnknownSeverity(t *testing.T) {
	got := renderStatusLine(daemonctl.StatusLine{Label: "Audio", Severity: "mystery"}, false)
	if !strings.HasSuffix(got, "[INFO]") {
		t.Fatalf("expected unknown severity to render as INFO, got %q", got)
	}
}

func TestDependencyStatusLines(t *testing.T) {
	deps := []api.DependencyStatus{
		{Name: "pactl", Available: false},
		{Name: "pactl", Available: true, Detail: "pactl 16.1"},
		{Name: "pactl", Available: false, Optional: true, Detail: "not found"},
		{Name: "pactl", Available: true},
	}
	lines := dependencyStatusLines(deps)
	want := []daemonctl.StatusLine{
		{Label: "pactl", Severity: daemonctl.SeverityError, Detail: "not available"},
		{Label: "pactl", Severity: daemonctl.SeverityOK, Detail: "pactl 16.1"},
		{Label: "pactl", Severity: daemonctl.SeverityWarn, Detail: "not found (optional)"},
		{Label: "pactl", Severity: daemonctl.SeverityOK, Detail: "Ready"},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %+v want %+v", i, lines[i], want[i])
		}
	}

	if empty := dependencyStatusLines(nil); len(empty) != 1 || empty[0].Label != "Summary" {
		t.Fatalf("unexpected empty summary %+v", empty)
	}
}

func TestStatusPrinterSeparatesSections(t *testing.T) {
	var buf bytes.Buffer
	printer := newStatusPrinter(&buf)
	printer.section("System Status")
	printer.lines([]daemonctl.StatusLine{{Label: "Audio", Severity: daemonctl.SeverityOK, Detail: "Speakers"}})
	printer.section("State")

	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(got) != 6 {
		t.Fatalf("unexpected output lines %q", got)
	}
	if got[0] != "== System Status ==" || got[3] != "" || got[4] != "== State ==" {
		t.Fatalf("unexpected section layout %q", got)
	}
	if strings.Contains(buf.String(), ansiReset) {
		t.Fatal("expected no color for a non-terminal writer")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
