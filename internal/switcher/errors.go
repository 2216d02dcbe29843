package switcher

import (
	"errors"
	"fmt"
)

// Sentinel errors matched through errors.Is on *Error values.
var (
	ErrEnumeration  = errors.New("audio device enumeration failed")
	ErrNotFound     = errors.New("audio device not found")
	ErrDisabled     = errors.New("audio device disabled")
	ErrBusy         = errors.New("another switch is in progress")
	ErrSwitchFailed = errors.New("audio device switch failed")
)

// Kind is the wire-stable classification of a coordinator error.
type Kind string

const (
	KindEnumeration  Kind = "enumeration"
	KindNotFound     Kind = "not_found"
	KindDisabled     Kind = "disabled"
	KindBusy         Kind = "busy"
	KindSwitchFailed Kind = "switch_failed"
)

func (k Kind) sentinel() error {
	switch k {
	case KindEnumeration:
		return ErrEnumeration
	case KindNotFound:
		return ErrNotFound
	case KindDisabled:
		return ErrDisabled
	case KindBusy:
		return ErrBusy
	case KindSwitchFailed:
		return ErrSwitchFailed
	default:
		return nil
	}
}

// Error is returned by every coordinator operation.
type Error struct {
	Kind     Kind
	DeviceID string
	Err      error

	// message replaces the formatted text for errors rebuilt from a remote
	// daemon response.
	message string
}

func newError(kind Kind, deviceID string, cause error) *Error {
	return &Error{Kind: kind, DeviceID: deviceID, Err: cause}
}

// Remote rebuilds an error received over IPC or HTTP.
func Remote(kind, message, deviceID string) *Error {
	return &Error{Kind: Kind(kind), DeviceID: deviceID, message: message}
}

func (e *Error) Error() string {
	if e.message != "" {
		return e.message
	}
	msg := string(e.Kind)
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		msg = sentinel.Error()
	}
	if e.DeviceID != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.DeviceID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	var errs []error
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorKind returns the string classification of the error.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// Retryable reports whether repeating the same request may succeed without
// the caller first re-enumerating devices.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindEnumeration, KindBusy, KindSwitchFailed:
		return true
	default:
		return false
	}
}

// KindOf extracts the classification from err, or "" for foreign errors.
func KindOf(err error) Kind {
	var swErr *Error
	if errors.As(err, &swErr) {
		return swErr.Kind
	}
	return ""
}
