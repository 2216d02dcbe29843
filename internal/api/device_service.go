package api

import (
	"context"

	"audioflip/internal/store"
	"audioflip/internal/switcher"
)

// Coordinator is the switching surface the transports expose.
type Coordinator interface {
	ListDevices(ctx context.Context) (switcher.Snapshot, error)
	ToggleDevice(ctx context.Context, id string) (switcher.Snapshot, error)
	Cycle(ctx context.Context) (switcher.Snapshot, bool, error)
	SetRotation(ctx context.Context, id string, include bool) (switcher.Snapshot, error)
}

// HistoryReader reads recorded switch attempts.
type HistoryReader interface {
	History(ctx context.Context, limit int) ([]store.SwitchRecord, error)
}

// DeviceService adapts coordinator results into wire responses so IPC and
// HTTP report identical payloads.
type DeviceService struct {
	coord   Coordinator
	history HistoryReader
}

// NewDeviceService constructs a DeviceService. history may be nil.
func NewDeviceService(coord Coordinator, history HistoryReader) *DeviceService {
	if coord == nil {
		return nil
	}
	return &DeviceService{coord: coord, history: history}
}

// List returns the current device snapshot.
func (s *DeviceService) List(ctx context.Context) DevicesResponse {
	snap, err := s.coord.ListDevices(ctx)
	return NewDevicesResponse(snap, err)
}

// Toggle switches to id.
func (s *DeviceService) Toggle(ctx context.Context, id string) DevicesResponse {
	snap, err := s.coord.ToggleDevice(ctx, id)
	return NewDevicesResponse(snap, err)
}

// Cycle advances to the next rotation device.
func (s *DeviceService) Cycle(ctx context.Context) DevicesResponse {
	snap, switched, err := s.coord.Cycle(ctx)
	resp := NewDevicesResponse(snap, err)
	resp.Switched = switched
	return resp
}

// SetRotation includes or excludes id from cycling.
func (s *DeviceService) SetRotation(ctx context.Context, id string, include bool) DevicesResponse {
	snap, err := s.coord.SetRotation(ctx, id, include)
	return NewDevicesResponse(snap, err)
}

// History returns up to limit entries, newest first.
func (s *DeviceService) History(ctx context.Context, limit int) (HistoryResponse, error) {
	if s.history == nil {
		return HistoryResponse{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	records, err := s.history.History(ctx, limit)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{Entries: FromSwitchRecords(records)}, nil
}
