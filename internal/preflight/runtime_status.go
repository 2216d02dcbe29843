package preflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audioflip/internal/audio"
)

// audioCheckTimeout bounds the probe so an unresponsive sound server does not
// stall startup.
const audioCheckTimeout = 5 * time.Second

// CheckAudioServer enumerates outputs once and reports the device count and
// whether a default is set.
func CheckAudioServer(ctx context.Context, backend audio.Backend) Result {
	name := fmt.Sprintf("Audio server (%s)", backend.Name())

	checkCtx, cancel := context.WithTimeout(ctx, audioCheckTimeout)
	defer cancel()

	endpoints, err := backend.EnumerateOutputDevices(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeAudioError(err)}
	}
	if len(endpoints) == 0 {
		return Result{Name: name, Detail: "reachable, but no output devices"}
	}
	defaultID, err := backend.GetDefaultOutputDevice(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeAudioError(err)}
	}
	if defaultID == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%d outputs, no default set", len(endpoints))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d outputs, default %s", len(endpoints), defaultID)}
}

func summarizeAudioError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "enumeration timed out (sound server unresponsive)"
	case errors.Is(err, audio.ErrUnavailable):
		return fmt.Sprintf("sound server unreachable (%v)", err)
	default:
		return err.Error()
	}
}
