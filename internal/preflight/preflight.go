package preflight

import (
	"context"
	"path/filepath"

	"audioflip/internal/audio"
	"audioflip/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. The
// audio check is skipped when backend is nil.
func RunAll(ctx context.Context, cfg *config.Config, backend audio.Backend) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Socket directory", filepath.Dir(cfg.Paths.SocketPath)),
	}
	if backend != nil {
		results = append(results, CheckAudioServer(ctx, backend))
	}
	return results
}
