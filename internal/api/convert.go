package api

import (
	"errors"

	"audioflip/internal/hotplug"
	"audioflip/internal/store"
	"audioflip/internal/switcher"
)

// FromSnapshot converts a coordinator snapshot to wire devices.
func FromSnapshot(snap switcher.Snapshot) []Device {
	if snap == nil {
		return nil
	}
	out := make([]Device, 0, len(snap))
	for _, d := range snap {
		out = append(out, Device(d))
	}
	return out
}

// ToSnapshot rebuilds a snapshot from wire devices.
func ToSnapshot(devices []Device) switcher.Snapshot {
	if devices == nil {
		return nil
	}
	out := make(switcher.Snapshot, 0, len(devices))
	for _, d := range devices {
		out = append(out, switcher.Device(d))
	}
	return out
}

// FromError classifies err for the wire. Nil maps to nil.
func FromError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var swErr *switcher.Error
	if errors.As(err, &swErr) {
		return &ErrorInfo{
			Kind:      swErr.ErrorKind(),
			Message:   swErr.Error(),
			DeviceID:  swErr.DeviceID,
			Retryable: swErr.Retryable(),
		}
	}
	return &ErrorInfo{Kind: KindInternal, Message: err.Error()}
}

// Err turns the wire error back into a *switcher.Error so callers can match
// the sentinels with errors.Is.
func (e *ErrorInfo) Err() error {
	if e == nil {
		return nil
	}
	return switcher.Remote(e.Kind, e.Message, e.DeviceID)
}

// NewDevicesResponse packages a snapshot and an optional error.
func NewDevicesResponse(snap switcher.Snapshot, err error) DevicesResponse {
	return DevicesResponse{
		Devices: FromSnapshot(snap),
		Label:   switcher.Label(snap),
		Error:   FromError(err),
	}
}

// FromSwitchRecord converts a stored history row.
func FromSwitchRecord(rec store.SwitchRecord) HistoryEntry {
	entry := HistoryEntry{
		ID:            rec.ID,
		RequestID:     rec.RequestID,
		Origin:        rec.Origin,
		RequestedID:   rec.RequestedID,
		RequestedName: rec.RequestedName,
		PreviousID:    rec.PreviousID,
		ResultID:      rec.ResultID,
		Outcome:       string(rec.Outcome),
		ErrorKind:     rec.ErrorKind,
		ErrorMessage:  rec.ErrorMessage,
	}
	if !rec.StartedAt.IsZero() {
		entry.StartedAt = rec.StartedAt.UTC().Format(dateTimeFormat)
	}
	if !rec.FinishedAt.IsZero() {
		entry.FinishedAt = rec.FinishedAt.UTC().Format(dateTimeFormat)
		if !rec.StartedAt.IsZero() {
			entry.DurationMs = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
		}
	}
	return entry
}

// FromSwitchRecords converts history rows preserving order.
func FromSwitchRecords(records []store.SwitchRecord) []HistoryEntry {
	if len(records) == 0 {
		return nil
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, FromSwitchRecord(rec))
	}
	return out
}

// FromEvents converts hot-plug feed events.
func FromEvents(events []hotplug.Event) []DeviceEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]DeviceEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, DeviceEvent{
			Sequence:  evt.Sequence,
			Timestamp: evt.Timestamp.UTC().Format(dateTimeFormat),
			Action:    evt.Action,
			DevPath:   evt.DevPath,
			Device:    evt.Device,
			Model:     evt.Model,
		})
	}
	return out
}
