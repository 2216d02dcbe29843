package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"audioflip/internal/api"
	"audioflip/internal/audio"
	"audioflip/internal/config"
	"audioflip/internal/deps"
	"audioflip/internal/hotplug"
	"audioflip/internal/logging"
	"audioflip/internal/preflight"
	"audioflip/internal/store"
	"audioflip/internal/switcher"
)

// Daemon owns the switch coordinator and its supporting services, and
// enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	backend audio.Backend
	coord   *switcher.Coordinator
	devices *api.DeviceService
	feed    *hotplug.Feed
	watcher *hotplug.Watcher
	apiSrv  *apiServer
	logPath string

	lockPath string
	lock     *flock.Flock

	shutdown func()

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc

	depsMu       sync.RWMutex
	dependencies []deps.Status
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLogPath records the active log file for status output.
func WithLogPath(path string) Option {
	return func(d *Daemon) { d.logPath = path }
}

// WithShutdown registers the hook Quit uses to end the process.
func WithShutdown(fn func()) Option {
	return func(d *Daemon) { d.shutdown = fn }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, backend audio.Backend, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil || backend == nil {
		return nil, errors.New("daemon requires config, store, and audio backend")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	coord := switcher.New(backend,
		switcher.WithLogger(logger),
		switcher.WithPreferences(st),
		switcher.WithHistory(st),
		switcher.WithVerifyDelay(time.Duration(cfg.Switching.VerifyDelayMillis)*time.Millisecond),
		switcher.WithSystemLock(cfg.SwitchLockPath()),
	)
	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		backend:  backend,
		coord:    coord,
		devices:  api.NewDeviceService(coord, st),
		feed:     hotplug.NewFeed(cfg.Hotplug.EventBuffer),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.watcher = hotplug.NewWatcher(cfg, logger, d.feed, d.onDeviceChange)

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiSrv = apiSrv
	return d, nil
}

// Start acquires the instance lock and launches the hot-plug watcher and
// optional HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another audioflip daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.apiSrv.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	if err := d.watcher.Start(runCtx); err != nil {
		cancel()
		d.apiSrv.stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start hot-plug watcher: %w", err)
	}
	d.cancel = cancel
	d.refreshDependencies(runCtx)
	d.running.Store(true)

	d.logger.Info("audioflip daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("backend", d.backend.Name()),
		logging.Bool("hotplug", d.watcher.Running()),
	)
	d.logPreflight(runCtx)
	return nil
}

// Stop shuts down background services and releases the instance lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.watcher.Stop()
	d.apiSrv.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" before restarting"),
		)
	}
	d.running.Store(false)
	d.logger.Info("audioflip daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Quit stops the daemon and asks the hosting process to exit. The hook runs
// asynchronously so the caller can still reply to the client.
func (d *Daemon) Quit() {
	d.logger.Info("quit requested",
		logging.String(logging.FieldEventType, "daemon_quit"))
	if d.shutdown == nil {
		go d.Stop()
		return
	}
	go d.shutdown()
}

// Devices exposes device operations as wire responses.
func (d *Daemon) Devices() *api.DeviceService {
	return d.devices
}

// Coordinator returns the switch coordinator.
func (d *Daemon) Coordinator() *switcher.Coordinator {
	return d.coord
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Events returns hot-plug events after since. A positive wait long-polls for
// up to that long when nothing is buffered.
func (d *Daemon) Events(ctx context.Context, since uint64, limit int, wait time.Duration) (api.EventsResponse, error) {
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	events, next, err := d.feed.Fetch(ctx, since, limit, wait > 0)
	if err != nil {
		return api.EventsResponse{Next: next}, err
	}
	return api.EventsResponse{Events: api.FromEvents(events), Next: next}, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Backend:        d.backend.Name(),
		Switching:      d.coord.Switching(),
		HotplugRunning: d.watcher.Running(),
		LastEvent:      d.feed.Last(),
		SocketPath:     d.cfg.Paths.SocketPath,
		LockFilePath:   d.lockPath,
		DatabasePath:   d.store.Path(),
		LogPath:        d.logPath,
		APIBind:        d.apiSrv.address(),
	}

	snap, err := d.coord.ListDevices(ctx)
	status.Label = switcher.Label(snap)
	if err != nil {
		status.DeviceError = err.Error()
	} else if current, ok := snap.Current(); ok {
		status.CurrentDevice = current.ID
	}

	if stats, err := d.store.Stats(ctx); err == nil {
		status.Exclusions = stats.Exclusions
		status.HistoryCount = stats.History
	}

	d.depsMu.RLock()
	for _, dep := range d.dependencies {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	d.depsMu.RUnlock()
	return status
}

func (d *Daemon) refreshDependencies(ctx context.Context) {
	results := preflight.CheckSystemDeps(ctx, d.cfg)
	d.depsMu.Lock()
	d.dependencies = results
	d.depsMu.Unlock()
	for _, dep := range results {
		if dep.Available || dep.Optional {
			continue
		}
		logging.WarnWithContext(d.logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", dep.Name),
			logging.String("detail", dep.Detail),
			logging.String(logging.FieldErrorHint, "install "+dep.Name+" or choose another audio.backend"),
			logging.String(logging.FieldImpact, "device switching will fail"),
		)
	}
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg, d.backend) {
		if result.Passed {
			d.logger.Debug("preflight passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}

// onDeviceChange re-enumerates after a hot-plug event so the log shows the
// resulting device set.
func (d *Daemon) onDeviceChange(ctx context.Context, evt hotplug.Event) {
	snap, err := d.coord.ListDevices(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "device refresh after hot-plug failed", "hotplug_refresh_failed",
			logging.Error(err),
			logging.String("action", evt.Action),
			logging.String(logging.FieldImpact, "clients see the change on their next request"),
		)
		return
	}
	d.logger.Info("device set refreshed",
		logging.String(logging.FieldEventType, "devices_refreshed"),
		logging.String("action", evt.Action),
		logging.Int("device_count", len(snap)),
		logging.String("label", switcher.Label(snap)),
	)
}
