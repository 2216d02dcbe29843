package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"audioflip/internal/api"
	"audioflip/internal/audio"
	"audioflip/internal/audio/memory"
	"audioflip/internal/store"
	"audioflip/internal/switcher"
)

func TestFromErrorRoundTripsSentinels(t *testing.T) {
	coord := switcher.New(memory.Stub())
	_, err := coord.ToggleDevice(context.Background(), "missing")

	info := api.FromError(err)
	if info == nil || info.Kind != "not_found" || info.DeviceID != "missing" || info.Retryable {
		t.Fatalf("unexpected error info: %+v", info)
	}
	if !errors.Is(info.Err(), switcher.ErrNotFound) {
		t.Fatalf("expected rebuilt error to match ErrNotFound, got %v", info.Err())
	}
}

func TestFromErrorInternal(t *testing.T) {
	info := api.FromError(errors.New("disk full"))
	if info.Kind != api.KindInternal || info.Message != "disk full" {
		t.Fatalf("unexpected error info: %+v", info)
	}
	if api.FromError(nil) != nil {
		t.Fatal("expected nil error info for nil error")
	}
	var none *api.ErrorInfo
	if none.Err() != nil {
		t.Fatal("expected nil error from nil info")
	}
}

func TestDeviceServiceToggleReportsSnapshotAndLabel(t *testing.T) {
	svc := api.NewDeviceService(switcher.New(memory.Stub()), nil)

	resp := svc.Toggle(context.Background(), "stub-headphone")
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.Label != "AudioFlip - Headphones (Stub)" {
		t.Fatalf("unexpected label %q", resp.Label)
	}
	if len(resp.Devices) != 2 || !resp.Devices[1].IsCurrent {
		t.Fatalf("unexpected devices: %+v", resp.Devices)
	}
	snap := api.ToSnapshot(resp.Devices)
	if current, _ := snap.Current(); current.ID != "stub-headphone" {
		t.Fatalf("unexpected current after conversion: %+v", current)
	}
}

func TestDeviceServiceCycleMarksSwitched(t *testing.T) {
	svc := api.NewDeviceService(switcher.New(memory.Stub()), nil)
	resp := svc.Cycle(context.Background())
	if resp.Error != nil || !resp.Switched {
		t.Fatalf("expected switched cycle, got %+v", resp)
	}
}

func TestDeviceServiceEnumerationFailureHasNoDevices(t *testing.T) {
	backend := memory.Stub()
	backend.FailEnumerate(audio.ErrUnavailable)
	svc := api.NewDeviceService(switcher.New(backend), nil)

	resp := svc.List(context.Background())
	if resp.Error == nil || resp.Error.Kind != "enumeration" || !resp.Error.Retryable {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.Devices != nil || resp.Label != "AudioFlip" {
		t.Fatalf("expected no devices and bare label, got %+v", resp)
	}
}

type historyStub struct {
	records []store.SwitchRecord
	limit   int
}

func (h *historyStub) History(_ context.Context, limit int) ([]store.SwitchRecord, error) {
	h.limit = limit
	return h.records, nil
}

func TestDeviceServiceHistory(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hist := &historyStub{records: []store.SwitchRecord{{
		ID:          3,
		RequestedID: "B",
		Outcome:     store.OutcomeSwitched,
		StartedAt:   started,
		FinishedAt:  started.Add(150 * time.Millisecond),
	}}}
	svc := api.NewDeviceService(switcher.New(memory.Stub()), hist)

	resp, err := svc.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if hist.limit != 20 {
		t.Fatalf("expected default limit 20, got %d", hist.limit)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(resp.Entries))
	}
	entry := resp.Entries[0]
	if entry.DurationMs != 150 || entry.StartedAt != "2026-03-01T12:00:00.000Z" || entry.Outcome != "switched" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}
