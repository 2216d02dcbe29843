package memory_test

import (
	"context"
	"errors"
	"testing"

	"audioflip/internal/audio"
	"audioflip/internal/audio/memory"
)

func TestStubReportsTwoDevices(t *testing.T) {
	backend := memory.Stub()
	endpoints, err := backend.EnumerateOutputDevices(context.Background())
	if err != nil {
		t.Fatalf("EnumerateOutputDevices returned error: %v", err)
	}
	if len(endpoints) != 2 || endpoints[0].ID != "stub-speaker" || endpoints[1].ID != "stub-headphone" {
		t.Fatalf("unexpected stub endpoints: %+v", endpoints)
	}
	current, err := backend.GetDefaultOutputDevice(context.Background())
	if err != nil || current != "stub-speaker" {
		t.Fatalf("unexpected default %q err=%v", current, err)
	}
}

func TestSetDefaultRejectsUnknownSink(t *testing.T) {
	backend := memory.Stub()
	err := backend.SetDefaultOutputDevice(context.Background(), "nope")
	if !errors.Is(err, audio.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if calls := backend.SetCalls(); len(calls) != 1 || calls[0] != "nope" {
		t.Fatalf("expected set call recorded, got %v", calls)
	}
}

func TestIgnoreSetsLeavesDefaultUnchanged(t *testing.T) {
	backend := memory.Stub()
	backend.IgnoreSets(true)
	if err := backend.SetDefaultOutputDevice(context.Background(), "stub-headphone"); err != nil {
		t.Fatalf("SetDefaultOutputDevice returned error: %v", err)
	}
	current, _ := backend.GetDefaultOutputDevice(context.Background())
	if current != "stub-speaker" {
		t.Fatalf("expected default unchanged, got %q", current)
	}
}

func TestEnumerateReturnsCopy(t *testing.T) {
	backend := memory.Stub()
	endpoints, _ := backend.EnumerateOutputDevices(context.Background())
	endpoints[0].Name = "mutated"
	again, _ := backend.EnumerateOutputDevices(context.Background())
	if again[0].Name != "Speakers (Stub)" {
		t.Fatalf("expected backend state isolated from callers, got %q", again[0].Name)
	}
}
