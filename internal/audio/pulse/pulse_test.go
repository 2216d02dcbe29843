package pulse

import (
	"context"
	"errors"
	"testing"

	"audioflip/internal/audio"
)

type fakeSession struct {
	sinks      []audio.Endpoint
	defaultID  string
	setErr     error
	setCalls   *[]string
	closeCount *int
}

func (f fakeSession) Sinks() ([]audio.Endpoint, error) { return f.sinks, nil }

func (f fakeSession) DefaultSinkID() (string, error) { return f.defaultID, nil }

func (f fakeSession) SetDefaultSink(name string) error {
	*f.setCalls = append(*f.setCalls, name)
	return f.setErr
}

func (f fakeSession) Close() { *f.closeCount++ }

func newFakeBackend(s fakeSession, dialErr error) *Backend {
	return &Backend{dial: func() (session, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return s, nil
	}}
}

func TestBackendDialsPerCallAndCloses(t *testing.T) {
	var calls []string
	closed := 0
	backend := newFakeBackend(fakeSession{
		sinks:      []audio.Endpoint{{ID: "sink-a", Name: "Speakers", Enabled: true}},
		defaultID:  "sink-a",
		setCalls:   &calls,
		closeCount: &closed,
	}, nil)

	ctx := context.Background()
	endpoints, err := backend.EnumerateOutputDevices(ctx)
	if err != nil || len(endpoints) != 1 {
		t.Fatalf("unexpected enumerate result %v err=%v", endpoints, err)
	}
	if id, err := backend.GetDefaultOutputDevice(ctx); err != nil || id != "sink-a" {
		t.Fatalf("unexpected default %q err=%v", id, err)
	}
	if err := backend.SetDefaultOutputDevice(ctx, "sink-a"); err != nil {
		t.Fatalf("SetDefaultOutputDevice returned error: %v", err)
	}
	if closed != 3 {
		t.Fatalf("expected one session per call, closed %d", closed)
	}
	if len(calls) != 1 || calls[0] != "sink-a" {
		t.Fatalf("unexpected set calls %v", calls)
	}
}

func TestDialFailureIsUnavailable(t *testing.T) {
	backend := newFakeBackend(fakeSession{}, errors.New("dial unix /run/user/1000/pulse/native: connect: no such file or directory"))
	if _, err := backend.EnumerateOutputDevices(context.Background()); !errors.Is(err, audio.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSetFailureIsRejection(t *testing.T) {
	var calls []string
	closed := 0
	backend := newFakeBackend(fakeSession{setErr: errors.New("No such entity"), setCalls: &calls, closeCount: &closed}, nil)
	if err := backend.SetDefaultOutputDevice(context.Background(), "ghost"); !errors.Is(err, audio.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestCanceledContextSkipsDial(t *testing.T) {
	dialed := false
	backend := &Backend{dial: func() (session, error) {
		dialed = true
		return nil, errors.New("unexpected dial")
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := backend.GetDefaultOutputDevice(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if dialed {
		t.Fatal("expected no dial after cancellation")
	}
}
