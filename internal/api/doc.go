// Package api defines wire-format types and converters shared by the IPC and
// HTTP layers.
//
// DevicesResponse is the single payload for every device operation: the
// snapshot to render, the status label, and an optional classified error.
// ErrorInfo.Err rebuilds a *switcher.Error on the client side so errors.Is
// keeps working across the socket.
//
// JSON tags use snake_case to match the device fields clients already read
// (is_current, in_rotation). Timestamps use RFC3339 with milliseconds.
package api
