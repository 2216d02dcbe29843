package switcher_test

import (
	"errors"
	"testing"

	"audioflip/internal/switcher"
)

func TestLabel(t *testing.T) {
	snap := switcher.Snapshot{
		{ID: "A", Name: "Speakers"},
		{ID: "B", Name: "Headphones", IsCurrent: true},
	}
	if got := switcher.Label(snap); got != "AudioFlip - Headphones" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := switcher.Label(nil); got != "AudioFlip" {
		t.Fatalf("unexpected empty label %q", got)
	}
}

func TestResolve(t *testing.T) {
	snap := switcher.Snapshot{
		{ID: "alsa_output.usb", Name: "USB Headset"},
		{ID: "alsa_output.pci", Name: "Speakers"},
		{ID: "alsa_output.hdmi-1", Name: "HDMI"},
		{ID: "alsa_output.hdmi-2", Name: "hdmi"},
	}
	tests := []struct {
		query   string
		wantID  string
		wantErr error
	}{
		{"alsa_output.pci", "alsa_output.pci", nil},
		{"usb headset", "alsa_output.usb", nil},
		{"  SPEAKERS ", "alsa_output.pci", nil},
		{"Hdmi", "", switcher.ErrAmbiguous},
		{"bluetooth", "", switcher.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d, err := switcher.Resolve(snap, tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if d.ID != tt.wantID {
				t.Fatalf("expected %q, got %q", tt.wantID, d.ID)
			}
		})
	}
}

func TestRemoteErrorsMatchSentinels(t *testing.T) {
	err := switcher.Remote("busy", "another switch is in progress", "")
	if !errors.Is(err, switcher.ErrBusy) {
		t.Fatalf("expected remote busy to match ErrBusy")
	}
	if !err.Retryable() || err.ErrorKind() != "busy" {
		t.Fatalf("unexpected classification: %+v", err)
	}
	if err.Error() != "another switch is in progress" {
		t.Fatalf("expected remote message preserved, got %q", err.Error())
	}

	unknown := switcher.Remote("exotic", "something", "x")
	if errors.Is(unknown, switcher.ErrBusy) || unknown.Retryable() {
		t.Fatal("unknown kinds must not match sentinels or be retryable")
	}
}
