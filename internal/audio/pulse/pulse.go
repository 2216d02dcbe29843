// Package pulse implements the audio backend over the PulseAudio native
// protocol, which pipewire-pulse also serves.
package pulse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"audioflip/internal/audio"
)

// session is one server connection. A fresh session is dialed per call so a
// restarted sound server never leaves the backend holding a dead socket.
type session interface {
	Sinks() ([]audio.Endpoint, error)
	DefaultSinkID() (string, error)
	SetDefaultSink(name string) error
	Close()
}

type dialFunc func() (session, error)

// Backend talks to the sound server through github.com/jfreymuth/pulse.
type Backend struct {
	dial dialFunc
}

// New returns a backend that identifies itself as applicationName. An empty
// server uses the library's discovery ($PULSE_SERVER, then the user runtime
// socket).
func New(applicationName, server string) *Backend {
	opts := []pulse.ClientOption{pulse.ClientApplicationName(applicationName)}
	if server = strings.TrimSpace(server); server != "" {
		opts = append(opts, pulse.ClientServerString(server))
	}
	return &Backend{dial: func() (session, error) {
		client, err := pulse.NewClient(opts...)
		if err != nil {
			return nil, err
		}
		return clientSession{client: client}, nil
	}}
}

func (b *Backend) Name() string { return "pulse" }

func (b *Backend) EnumerateOutputDevices(ctx context.Context) ([]audio.Endpoint, error) {
	var endpoints []audio.Endpoint
	err := b.with(ctx, func(s session) error {
		var err error
		endpoints, err = s.Sinks()
		if err != nil {
			return fmt.Errorf("list sinks: %w", err)
		}
		return nil
	})
	return endpoints, err
}

func (b *Backend) GetDefaultOutputDevice(ctx context.Context) (string, error) {
	var id string
	err := b.with(ctx, func(s session) error {
		var err error
		id, err = s.DefaultSinkID()
		if err != nil {
			return fmt.Errorf("get default sink: %w", err)
		}
		return nil
	})
	return id, err
}

func (b *Backend) SetDefaultOutputDevice(ctx context.Context, id string) error {
	return b.with(ctx, func(s session) error {
		if err := s.SetDefaultSink(id); err != nil {
			return fmt.Errorf("set default sink %q: %w: %w", id, audio.ErrRejected, err)
		}
		return nil
	})
}

// with dials a session, runs fn, and closes the session. The protocol client
// has no context support, so ctx is only checked before dialing.
func (b *Backend) with(ctx context.Context, fn func(session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := b.dial()
	if err != nil {
		return fmt.Errorf("%w: connect to sound server: %w", audio.ErrUnavailable, err)
	}
	defer s.Close()
	return fn(s)
}

type clientSession struct {
	client *pulse.Client
}

func (c clientSession) Sinks() ([]audio.Endpoint, error) {
	sinks, err := c.client.ListSinks()
	if err != nil {
		return nil, err
	}
	endpoints := make([]audio.Endpoint, 0, len(sinks))
	for _, sink := range sinks {
		// ID is the unique sink name; Name is the human description.
		endpoints = append(endpoints, audio.Endpoint{
			ID:      sink.ID(),
			Name:    sink.Name(),
			Enabled: true,
		})
	}
	return endpoints, nil
}

func (c clientSession) DefaultSinkID() (string, error) {
	sink, err := c.client.DefaultSink()
	if err != nil {
		return "", err
	}
	if sink == nil {
		return "", nil
	}
	return sink.ID(), nil
}

func (c clientSession) SetDefaultSink(name string) error {
	return c.client.RawRequest(&proto.SetDefaultSink{SinkName: name}, nil)
}

func (c clientSession) Close() {
	c.client.Close()
}
