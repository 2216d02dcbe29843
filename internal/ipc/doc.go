// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// Device calls share their payloads with the HTTP API through
// api.DeviceService. The client rebuilds coordinator failures as
// *switcher.Error values so callers can match them with errors.Is, and it
// stamps every switching call with a request id that ends up in the daemon
// logs and switch history.
package ipc
