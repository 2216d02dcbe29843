package audio

import (
	"context"
	"errors"
)

// Endpoint is one output device as reported by an OS backend.
type Endpoint struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Backend abstracts the OS audio subsystem. Implementations must be safe for
// concurrent use and must not cache results between calls.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// EnumerateOutputDevices lists output endpoints in OS enumeration order.
	EnumerateOutputDevices(ctx context.Context) ([]Endpoint, error)
	// GetDefaultOutputDevice returns the id of the current default output.
	// An empty id with a nil error means the OS reports no default.
	GetDefaultOutputDevice(ctx context.Context) (string, error)
	// SetDefaultOutputDevice asks the OS to route output to id.
	SetDefaultOutputDevice(ctx context.Context, id string) error
}

// ErrUnavailable marks failures to reach the audio subsystem at all.
var ErrUnavailable = errors.New("audio subsystem unavailable")

// ErrRejected marks a set-default request the audio subsystem refused.
var ErrRejected = errors.New("audio subsystem rejected request")
