package switcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"audioflip/internal/audio"
	"audioflip/internal/logging"
	"audioflip/internal/store"
)

// Preferences persists which devices are excluded from cycling.
type Preferences interface {
	Exclusions(ctx context.Context) (map[string]bool, error)
	SetExcluded(ctx context.Context, id, name string, excluded bool) error
}

// HistoryRecorder stores switch attempts.
type HistoryRecorder interface {
	RecordSwitch(ctx context.Context, rec store.SwitchRecord) error
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logging.NewComponentLogger(logger, "switcher") }
}

// WithPreferences enables rotation preferences.
func WithPreferences(p Preferences) Option {
	return func(c *Coordinator) { c.prefs = p }
}

// WithHistory records every switch attempt.
func WithHistory(h HistoryRecorder) Option {
	return func(c *Coordinator) { c.history = h }
}

// WithVerifyDelay waits d between issuing a switch and verifying it.
func WithVerifyDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.verifyDelay = d }
}

// WithSystemLock shares the switch lock with every process using the same
// lock file. An empty path keeps the lock process-local.
func WithSystemLock(path string) Option {
	return func(c *Coordinator) {
		if path != "" {
			c.fileLock = flock.New(path)
		}
	}
}

// Coordinator owns the switch lock. It holds no device state: every call
// re-reads the backend.
type Coordinator struct {
	backend     audio.Backend
	logger      *slog.Logger
	prefs       Preferences
	history     HistoryRecorder
	verifyDelay time.Duration

	busy     atomic.Bool
	fileLock *flock.Flock
}

// New constructs a coordinator over backend.
func New(backend audio.Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend: backend,
		logger:  logging.NewComponentLogger(nil, "switcher"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BackendName identifies the audio backend in use.
func (c *Coordinator) BackendName() string {
	return c.backend.Name()
}

// Switching reports whether a switch is in flight in this process.
func (c *Coordinator) Switching() bool {
	return c.busy.Load()
}

// ListDevices returns a fresh snapshot. It never takes the switch lock.
func (c *Coordinator) ListDevices(ctx context.Context) (Snapshot, error) {
	return c.snapshot(ctx)
}

// ToggleDevice makes id the default output and verifies the OS applied it.
//
// Busy is returned without a snapshot. NotFound and Disabled carry the fresh
// snapshot used for validation. SwitchFailed carries the snapshot read after
// the attempt, or nil when even that read failed. Once the set command is
// issued, cancelling ctx no longer interrupts the call.
func (c *Coordinator) ToggleDevice(ctx context.Context, id string) (Snapshot, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return c.switchTo(ctx, snap, id, started)
}

// Cycle switches to the device after the current one in the rotation. With
// fewer than two rotation devices it returns the snapshot and switched=false.
func (c *Coordinator) Cycle(ctx context.Context) (snap Snapshot, switched bool, err error) {
	release, err := c.acquire()
	if err != nil {
		return nil, false, err
	}
	defer release()

	started := time.Now()
	snap, err = c.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	target, ok := nextInRotation(snap)
	if !ok {
		c.logger.Debug("cycle skipped; fewer than two devices in rotation",
			logging.Int("rotation_size", len(snap.Rotation())))
		return snap, false, nil
	}
	snap, err = c.switchTo(ctx, snap, target.ID, started)
	if err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

func nextInRotation(snap Snapshot) (Device, bool) {
	rotation := snap.Rotation()
	if len(rotation) < 2 {
		return Device{}, false
	}
	idx := 0
	for i, d := range rotation {
		if d.IsCurrent {
			idx = i
			break
		}
	}
	return rotation[(idx+1)%len(rotation)], true
}

// SetRotation includes or excludes id from cycling and returns a snapshot
// reflecting the change. It does not take the switch lock.
func (c *Coordinator) SetRotation(ctx context.Context, id string, include bool) (Snapshot, error) {
	if c.prefs == nil {
		return nil, errors.New("rotation preferences unavailable")
	}
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := snap.Find(id)
	if !ok {
		return snap, newError(KindNotFound, id, nil)
	}
	if err := c.prefs.SetExcluded(ctx, id, target.Name, !include); err != nil {
		return snap, fmt.Errorf("update rotation for %q: %w", id, err)
	}
	for i := range snap {
		if snap[i].ID == id {
			snap[i].InRotation = include
		}
	}
	c.logger.Info("rotation updated",
		logging.String(logging.FieldEventType, "rotation_updated"),
		logging.String(logging.FieldDeviceID, id),
		logging.Bool("in_rotation", include),
	)
	return snap, nil
}

// acquire takes the switch lock without blocking.
func (c *Coordinator) acquire() (func(), error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, newError(KindBusy, "", nil)
	}
	if c.fileLock == nil {
		return func() { c.busy.Store(false) }, nil
	}
	locked, err := c.fileLock.TryLock()
	if err != nil {
		c.busy.Store(false)
		return nil, newError(KindBusy, "", fmt.Errorf("acquire switch lock %s: %w", c.fileLock.Path(), err))
	}
	if !locked {
		c.busy.Store(false)
		return nil, newError(KindBusy, "", errors.New("held by another process"))
	}
	return func() {
		if err := c.fileLock.Unlock(); err != nil {
			logging.WarnWithContext(c.logger, "switch lock release failed", "switch_lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+c.fileLock.Path()+" if switches keep reporting busy"),
			)
		}
		c.busy.Store(false)
	}, nil
}

// switchTo runs validation, the set command, and verification against a
// snapshot taken under the lock.
func (c *Coordinator) switchTo(ctx context.Context, snap Snapshot, id string, started time.Time) (Snapshot, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldDeviceID, id))

	target, ok := snap.Find(id)
	if !ok {
		return snap, newError(KindNotFound, id, nil)
	}
	// The current device can report itself unavailable (pactl marks an active
	// port "not available"); re-selecting it stays a verified no-op.
	if !target.Enabled && !target.IsCurrent {
		return snap, newError(KindDisabled, id, nil)
	}
	previous, _ := snap.Current()

	// Past this point the OS may change state; callers wait for the result.
	ctx = context.WithoutCancel(ctx)

	var setErr error
	if !target.IsCurrent {
		setErr = c.backend.SetDefaultOutputDevice(ctx, id)
		if setErr == nil && c.verifyDelay > 0 {
			time.Sleep(c.verifyDelay)
		}
	}

	after, verifyErr := c.snapshot(ctx)
	var result error
	switch {
	case setErr != nil:
		result = newError(KindSwitchFailed, id, setErr)
	case verifyErr != nil:
		result = newError(KindSwitchFailed, id, fmt.Errorf("verify: %w", verifyErr))
	default:
		if current, _ := after.Current(); current.ID != id {
			result = newError(KindSwitchFailed, id, fmt.Errorf("default is %q after switch", current.ID))
		}
	}
	if verifyErr != nil {
		after = nil
	}

	rec := store.SwitchRecord{
		RequestedID:   id,
		RequestedName: target.Name,
		PreviousID:    previous.ID,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
	if current, ok := after.Current(); ok {
		rec.ResultID = current.ID
	}
	switch {
	case result != nil:
		rec.Outcome = store.OutcomeFailed
		rec.ErrorKind = string(KindSwitchFailed)
		rec.ErrorMessage = result.Error()
		logging.WarnWithContext(logger, "audio device switch failed", "switch_failed",
			logging.Error(result),
			logging.String("actual_device_id", rec.ResultID),
			logging.String(logging.FieldErrorHint, "check the sound server; the device may have been unplugged or rejected"),
			logging.String(logging.FieldImpact, "default output unchanged or changed by another client"),
		)
	case target.IsCurrent:
		rec.Outcome = store.OutcomeUnchanged
		logger.Debug("device already current; verified",
			logging.String(logging.FieldEventType, "switch_noop"))
	default:
		rec.Outcome = store.OutcomeSwitched
		logger.Info("audio output switched",
			logging.String(logging.FieldEventType, "switch_completed"),
			logging.String("device_name", target.Name),
			logging.String("previous_device_id", previous.ID),
			logging.Duration("elapsed", rec.FinishedAt.Sub(started)),
		)
	}
	c.record(ctx, logger, rec)
	return after, result
}

func (c *Coordinator) record(ctx context.Context, logger *slog.Logger, rec store.SwitchRecord) {
	if c.history == nil {
		return
	}
	if rid, ok := logging.RequestIDFromContext(ctx); ok {
		rec.RequestID = rid
	}
	if origin, ok := logging.OriginFromContext(ctx); ok {
		rec.Origin = origin
	}
	if err := c.history.RecordSwitch(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "switch history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state directory permissions and free space"),
			logging.String(logging.FieldImpact, "switch not recorded in history"),
		)
	}
}

// snapshot reads devices and the default from the backend.
func (c *Coordinator) snapshot(ctx context.Context) (Snapshot, error) {
	endpoints, err := c.backend.EnumerateOutputDevices(ctx)
	if err != nil {
		return nil, newError(KindEnumeration, "", err)
	}
	defaultID, err := c.backend.GetDefaultOutputDevice(ctx)
	if err != nil {
		return nil, newError(KindEnumeration, "", err)
	}
	if defaultID == "" {
		return nil, newError(KindEnumeration, "", errors.New("no default output device"))
	}

	excluded := c.exclusions(ctx)
	snap := make(Snapshot, 0, len(endpoints))
	seen := make(map[string]struct{}, len(endpoints))
	haveCurrent := false
	for _, ep := range endpoints {
		if ep.ID == "" {
			continue
		}
		if _, dup := seen[ep.ID]; dup {
			continue
		}
		seen[ep.ID] = struct{}{}
		isCurrent := ep.ID == defaultID
		haveCurrent = haveCurrent || isCurrent
		snap = append(snap, Device{
			ID:         ep.ID,
			Name:       ep.Name,
			IsCurrent:  isCurrent,
			Enabled:    ep.Enabled,
			InRotation: !excluded[ep.ID],
		})
	}
	if !haveCurrent {
		return nil, newError(KindEnumeration, "", fmt.Errorf("default device %q not in enumeration", defaultID))
	}
	return snap, nil
}

// exclusions never fails a snapshot; unreadable preferences mean every device
// is in rotation.
func (c *Coordinator) exclusions(ctx context.Context) map[string]bool {
	if c.prefs == nil {
		return nil
	}
	excluded, err := c.prefs.Exclusions(ctx)
	if err != nil {
		logging.WarnWithContext(c.logger, "rotation preferences unavailable", "rotation_prefs_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "all devices treated as in rotation"),
		)
		return nil
	}
	return excluded
}
