package switcher

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Device is one output endpoint in a snapshot.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
	Enabled   bool   `json:"enabled"`
	// InRotation is false when the user removed the device from cycling.
	InRotation bool `json:"in_rotation"`
}

// Snapshot is a point-in-time device list in OS enumeration order. At most one
// device has IsCurrent set.
type Snapshot []Device

// Current returns the default device.
func (s Snapshot) Current() (Device, bool) {
	for _, d := range s {
		if d.IsCurrent {
			return d, true
		}
	}
	return Device{}, false
}

// Find returns the device with the given id.
func (s Snapshot) Find(id string) (Device, bool) {
	for _, d := range s {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// Rotation returns the enabled, in-rotation devices that Cycle steps through.
func (s Snapshot) Rotation() []Device {
	var out []Device
	for _, d := range s {
		if d.Enabled && d.InRotation {
			out = append(out, d)
		}
	}
	return out
}

const labelPrefix = "AudioFlip"

// Label renders the tray/status line for a snapshot.
func Label(s Snapshot) string {
	if current, ok := s.Current(); ok && current.Name != "" {
		return labelPrefix + " - " + current.Name
	}
	return labelPrefix
}

// ErrAmbiguous reports a name query matching more than one device.
var ErrAmbiguous = errors.New("device name is ambiguous")

// Resolve maps a user query to a device: an exact id first, then a
// case-insensitive name match. Names are not unique, so more than one name
// match is an error.
func Resolve(s Snapshot, query string) (Device, error) {
	query = strings.TrimSpace(query)
	folder := cases.Fold()
	if d, ok := s.Find(query); ok {
		return d, nil
	}
	want := folder.String(query)
	var matches []Device
	for _, d := range s {
		if folder.String(strings.TrimSpace(d.Name)) == want {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return Device{}, newError(KindNotFound, query, nil)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, d := range matches {
			ids = append(ids, d.ID)
		}
		return Device{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, query, strings.Join(ids, ", "))
	}
}
