// Package memory provides an in-process audio backend. The daemon uses it when
// audio.backend is "memory"; tests use its fault hooks to drive the switch
// coordinator through every failure path.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"audioflip/internal/audio"
)

// Backend holds a mutable device set and default id.
type Backend struct {
	mu        sync.Mutex
	endpoints []audio.Endpoint
	defaultID string

	enumerateErr error
	defaultErr   error
	setErr       error
	ignoreSets   bool
	onSet        func(ctx context.Context, id string)
	setCalls     []string
}

// New returns a backend seeded with endpoints and a default id.
func New(endpoints []audio.Endpoint, defaultID string) *Backend {
	return &Backend{endpoints: slices.Clone(endpoints), defaultID: defaultID}
}

// Stub returns the two-device set reported when no OS backend is available.
func Stub() *Backend {
	return New([]audio.Endpoint{
		{ID: "stub-speaker", Name: "Speakers (Stub)", Enabled: true},
		{ID: "stub-headphone", Name: "Headphones (Stub)", Enabled: true},
	}, "stub-speaker")
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) EnumerateOutputDevices(ctx context.Context) ([]audio.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enumerateErr != nil {
		return nil, b.enumerateErr
	}
	return slices.Clone(b.endpoints), nil
}

func (b *Backend) GetDefaultOutputDevice(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.defaultErr != nil {
		return "", b.defaultErr
	}
	return b.defaultID, nil
}

func (b *Backend) SetDefaultOutputDevice(ctx context.Context, id string) error {
	b.mu.Lock()
	b.setCalls = append(b.setCalls, id)
	hook := b.onSet
	setErr := b.setErr
	b.mu.Unlock()

	if hook != nil {
		hook(ctx, id)
	}
	if setErr != nil {
		return setErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ignoreSets {
		return nil
	}
	idx := slices.IndexFunc(b.endpoints, func(e audio.Endpoint) bool { return e.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: no sink named %q", audio.ErrRejected, id)
	}
	b.defaultID = id
	return nil
}

// SetEndpoints replaces the device set, simulating hot-plug.
func (b *Backend) SetEndpoints(endpoints []audio.Endpoint) {
	b.mu.Lock()
	b.endpoints = slices.Clone(endpoints)
	b.mu.Unlock()
}

// Remove drops the endpoint with id from the device set.
func (b *Backend) Remove(id string) {
	b.mu.Lock()
	b.endpoints = slices.DeleteFunc(b.endpoints, func(e audio.Endpoint) bool { return e.ID == id })
	b.mu.Unlock()
}

// SetDefault changes the default id without recording a set call, as another
// process would.
func (b *Backend) SetDefault(id string) {
	b.mu.Lock()
	b.defaultID = id
	b.mu.Unlock()
}

// FailEnumerate makes EnumerateOutputDevices return err until cleared with nil.
func (b *Backend) FailEnumerate(err error) {
	b.mu.Lock()
	b.enumerateErr = err
	b.mu.Unlock()
}

// FailDefault makes GetDefaultOutputDevice return err until cleared with nil.
func (b *Backend) FailDefault(err error) {
	b.mu.Lock()
	b.defaultErr = err
	b.mu.Unlock()
}

// FailSet makes SetDefaultOutputDevice return err until cleared with nil.
func (b *Backend) FailSet(err error) {
	b.mu.Lock()
	b.setErr = err
	b.mu.Unlock()
}

// IgnoreSets makes SetDefaultOutputDevice report success without changing the
// default, like a driver that silently drops the request.
func (b *Backend) IgnoreSets(ignore bool) {
	b.mu.Lock()
	b.ignoreSets = ignore
	b.mu.Unlock()
}

// OnSet installs a hook run at the start of every SetDefaultOutputDevice call.
func (b *Backend) OnSet(hook func(ctx context.Context, id string)) {
	b.mu.Lock()
	b.onSet = hook
	b.mu.Unlock()
}

// SetCalls returns the ids passed to SetDefaultOutputDevice so far.
func (b *Backend) SetCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.setCalls)
}
