// Package preflight provides readiness checks for the filesystem paths and
// audio server AudioFlip depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll results at startup so misconfiguration shows up
//     before the first switch request.
//   - The CLI "audioflip status" command renders the same results when the
//     daemon is not running.
package preflight
