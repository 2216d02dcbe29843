// Package hotplug watches udev for sound card changes and buffers them in a
// bounded, sequence-numbered feed that clients long-poll.
//
// The watcher is advisory: switching never depends on it, because every
// coordinator call re-enumerates devices anyway. It only lets clients refresh
// their device list when hardware appears or disappears.
package hotplug
