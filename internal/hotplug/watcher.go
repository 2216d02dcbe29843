package hotplug

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"audioflip/internal/config"
	"audioflip/internal/logging"
)

// ChangeFunc is called after an event is published.
type ChangeFunc func(ctx context.Context, evt Event)

// Watcher listens for udev netlink events on the sound subsystem.
type Watcher struct {
	logger   *slog.Logger
	feed     *Feed
	onChange ChangeFunc

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewWatcher returns nil when hot-plug watching is disabled. A nil Watcher is
// safe to Start, Stop, and query.
func NewWatcher(cfg *config.Config, logger *slog.Logger, feed *Feed, onChange ChangeFunc) *Watcher {
	if cfg == nil || !cfg.Hotplug.Enabled || feed == nil {
		return nil
	}
	return &Watcher{
		logger:   logging.NewComponentLogger(logger, "hotplug"),
		feed:     feed,
		onChange: onChange,
	}
}

// Start connects to the kernel uevent socket. Connection failure is logged and
// leaves the watcher stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(w.logger, "failed to connect to netlink socket; hot-plug events unavailable", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open NETLINK_KOBJECT_UEVENT sockets"),
			logging.String(logging.FieldImpact, "clients must refresh device lists manually"),
		)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true
	go w.loop(ctx, conn, w.quit)

	w.logger.Info("hot-plug watcher started",
		logging.String(logging.FieldEventType, "hotplug_started"))
	return nil
}

// Stop closes the netlink connection.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
	w.logger.Info("hot-plug watcher stopped",
		logging.String(logging.FieldEventType, "hotplug_stopped"))
}

// Running reports whether the watcher is connected.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, soundMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(w.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "hot-plug events may be missed"),
			)
		}
	}
}

// soundMatcher matches SUBSYSTEM=sound with ACTION add, remove, or change.
func soundMatcher() netlink.Matcher {
	action := "add|remove|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "sound"},
	})
	return rules
}

func (w *Watcher) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	evt := eventFromUEvent(uevent)
	if evt.DevPath == "" {
		w.logger.Debug("ignoring sound event without device path",
			logging.String("action", evt.Action))
		return
	}
	evt = w.feed.Publish(evt)
	w.logger.Info("sound device changed",
		logging.String(logging.FieldEventType, "hotplug_"+evt.Action),
		logging.String("device", evt.Device),
		logging.String("model", evt.Model),
		logging.Uint64("seq", evt.Sequence),
	)
	if w.onChange != nil {
		w.onChange(ctx, evt)
	}
}

func eventFromUEvent(uevent netlink.UEvent) Event {
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		devpath = uevent.KObj
	}
	evt := Event{
		Action:  string(uevent.Action),
		DevPath: devpath,
		Model:   firstNonEmpty(uevent.Env["ID_MODEL_FROM_DATABASE"], uevent.Env["ID_MODEL"]),
	}
	if devpath != "" {
		evt.Device = path.Base(devpath)
	}
	return evt
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
