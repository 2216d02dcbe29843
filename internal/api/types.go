package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// KindInternal classifies failures outside the switcher taxonomy, such as a
// preferences write error.
const KindInternal = "internal"

// KindInvalidRequest reports a malformed request.
const KindInvalidRequest = "invalid_request"

// Device describes one output endpoint.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsCurrent  bool   `json:"is_current"`
	Enabled    bool   `json:"enabled"`
	InRotation bool   `json:"in_rotation"`
}

// ErrorInfo carries a classified failure across the wire.
type ErrorInfo struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	DeviceID  string `json:"device_id,omitempty"`
	Retryable bool   `json:"retryable"`
}

// DevicesResponse is returned by every device operation. Devices is the
// snapshot the caller must render; it is present even alongside most errors.
type DevicesResponse struct {
	Devices  []Device   `json:"devices"`
	Label    string     `json:"label"`
	Switched bool       `json:"switched,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
}

// HistoryEntry is one recorded switch attempt.
type HistoryEntry struct {
	ID            int64  `json:"id"`
	RequestID     string `json:"request_id,omitempty"`
	Origin        string `json:"origin,omitempty"`
	RequestedID   string `json:"requested_id"`
	RequestedName string `json:"requested_name,omitempty"`
	PreviousID    string `json:"previous_id,omitempty"`
	ResultID      string `json:"result_id,omitempty"`
	Outcome       string `json:"outcome"`
	ErrorKind     string `json:"error_kind,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
	FinishedAt    string `json:"finished_at,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
}

// HistoryResponse wraps switch history, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// DeviceEvent is a hot-plug notification.
type DeviceEvent struct {
	Sequence  uint64 `json:"seq"`
	Timestamp string `json:"ts"`
	Action    string `json:"action"`
	DevPath   string `json:"devpath,omitempty"`
	Device    string `json:"device,omitempty"`
	Model     string `json:"model,omitempty"`
}

// EventsResponse carries hot-plug events after a cursor and the next cursor.
type EventsResponse struct {
	Events []DeviceEvent `json:"events"`
	Next   uint64        `json:"next"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	Backend        string             `json:"backend"`
	Switching      bool               `json:"switching"`
	Label          string             `json:"label"`
	CurrentDevice  string             `json:"current_device,omitempty"`
	DeviceError    string             `json:"device_error,omitempty"`
	HotplugRunning bool               `json:"hotplug_running"`
	LastEvent      uint64             `json:"last_event"`
	SocketPath     string             `json:"socket_path"`
	LockFilePath   string             `json:"lock_file_path"`
	DatabasePath   string             `json:"database_path"`
	LogPath        string             `json:"log_path,omitempty"`
	APIBind        string             `json:"api_bind,omitempty"`
	Exclusions     int                `json:"exclusions"`
	HistoryCount   int                `json:"history_count"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}
