package ipc

import "audioflip/internal/api"

// RequestID correlates a call with daemon logs and switch history. The client
// fills it in when empty.
type RequestID struct {
	RequestID string `json:"request_id,omitempty"`
}

// ListDevicesRequest fetches a fresh snapshot.
type ListDevicesRequest struct {
	RequestID
}

// ToggleDeviceRequest switches the default output to ID.
type ToggleDeviceRequest struct {
	RequestID
	ID string `json:"id"`
}

// CycleRequest advances to the next device in rotation.
type CycleRequest struct {
	RequestID
}

// SetRotationRequest includes or excludes ID from cycling.
type SetRotationRequest struct {
	RequestID
	ID      string `json:"id"`
	Include bool   `json:"include"`
}

// DevicesResponse carries a snapshot and, on failure, the classified error.
type DevicesResponse = api.DevicesResponse

// HistoryRequest fetches recent switch attempts.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse lists switch attempts newest first.
type HistoryResponse = api.HistoryResponse

// EventsRequest reads hot-plug events after Since, waiting up to WaitMillis
// when none are buffered.
type EventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse returns events and the cursor for the next call.
type EventsResponse = api.EventsResponse

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon status information.
type StatusResponse = api.DaemonStatus

// QuitRequest ends the daemon process.
type QuitRequest struct{}

// QuitResponse acknowledges a quit request.
type QuitResponse struct {
	Stopping bool `json:"stopping"`
}
