// Package switcher coordinates audio output switching.
//
// A Coordinator never caches device state. Every operation re-enumerates the
// backend, validates the request against that fresh snapshot, and returns the
// snapshot the caller must render. Switching operations share a non-blocking
// lock: a second request while one is in flight fails with ErrBusy instead of
// queueing. After a switch the coordinator reads the default device back and
// reports ErrSwitchFailed when the OS did not apply it.
package switcher
