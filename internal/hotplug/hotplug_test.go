package hotplug

import (
	"context"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"audioflip/internal/config"
)

func TestFeedFetchAfterCursor(t *testing.T) {
	feed := NewFeed(8)
	for _, action := range []string{"add", "change", "remove"} {
		feed.Publish(Event{Action: action, DevPath: "/devices/sound/card1"})
	}

	events, next, err := feed.Fetch(context.Background(), 1, 0, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 2 || events[0].Action != "change" || next != 3 {
		t.Fatalf("unexpected fetch: events=%+v next=%d", events, next)
	}

	events, next, _ = feed.Fetch(context.Background(), 0, 1, false)
	if len(events) != 1 || next != 1 {
		t.Fatalf("expected limited fetch to return cursor of last event, got %+v next=%d", events, next)
	}

	events, next, _ = feed.Fetch(context.Background(), 3, 0, false)
	if len(events) != 0 || next != 3 {
		t.Fatalf("expected empty fetch at head, got %+v next=%d", events, next)
	}
}

func TestFeedDropsOldestAtCapacity(t *testing.T) {
	feed := NewFeed(2)
	for i := 0; i < 3; i++ {
		feed.Publish(Event{Action: "add"})
	}
	events, last := feed.Tail(0)
	if len(events) != 2 || events[0].Sequence != 2 || last != 3 {
		t.Fatalf("unexpected tail: %+v last=%d", events, last)
	}
}

func TestFeedCursorAheadReplays(t *testing.T) {
	feed := NewFeed(4)
	feed.Publish(Event{Action: "add"})
	events, _, _ := feed.Fetch(context.Background(), 99, 0, false)
	if len(events) != 1 {
		t.Fatalf("expected replay after restart, got %+v", events)
	}
}

func TestFeedWaitWakesOnPublish(t *testing.T) {
	feed := NewFeed(4)
	done := make(chan []Event, 1)
	go func() {
		events, _, _ := feed.Fetch(context.Background(), 0, 0, true)
		done <- events
	}()
	time.Sleep(20 * time.Millisecond)
	feed.Publish(Event{Action: "add", DevPath: "/devices/x/sound/card2"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Action != "add" {
			t.Fatalf("unexpected events: %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by publish")
	}
}

func TestFeedWaitTimeoutIsNotAnError(t *testing.T) {
	feed := NewFeed(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	events, next, err := feed.Fetch(ctx, 0, 0, true)
	if err != nil || len(events) != 0 || next != 0 {
		t.Fatalf("expected empty result on timeout, got events=%v next=%d err=%v", events, next, err)
	}
}

func TestFeedWaitWithoutDeadlineIsBounded(t *testing.T) {
	feed := NewFeed(4)
	feed.maxWait = 30 * time.Millisecond
	done := make(chan error, 1)
	go func() {
		events, _, err := feed.Fetch(context.Background(), 0, 0, true)
		if err == nil && len(events) != 0 {
			t.Errorf("unexpected events: %+v", events)
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected bounded wait to end without error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait without a deadline never returned")
	}
}

func TestFeedWaitCancelled(t *testing.T) {
	feed := NewFeed(4)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, _, err := feed.Fetch(ctx, 0, 0, true); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewWatcherDisabled(t *testing.T) {
	cfg := &config.Config{}
	if w := NewWatcher(cfg, nil, NewFeed(4), nil); w != nil {
		t.Fatal("expected nil watcher when hot-plug disabled")
	}
	var w *Watcher
	if w.Running() {
		t.Fatal("nil watcher must not report running")
	}
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil watcher returned %v", err)
	}
}

func TestSoundMatcher(t *testing.T) {
	matcher := soundMatcher()
	for _, action := range []netlink.KObjAction{netlink.ADD, netlink.REMOVE, netlink.CHANGE} {
		evt := netlink.UEvent{Action: action, Env: map[string]string{"SUBSYSTEM": "sound"}}
		if !matcher.Evaluate(evt) {
			t.Fatalf("expected %s sound event to match", action)
		}
	}
	block := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}
	if matcher.Evaluate(block) {
		t.Fatal("expected block event to be rejected")
	}
}

func TestHandleEventPublishesAndNotifies(t *testing.T) {
	cfg := &config.Config{}
	cfg.Hotplug.Enabled = true
	feed := NewFeed(4)
	var notified Event
	w := NewWatcher(cfg, nil, feed, func(_ context.Context, evt Event) { notified = evt })

	w.handleEvent(context.Background(), netlink.UEvent{
		Action: netlink.ADD,
		KObj:   "/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/sound/card1",
		Env: map[string]string{
			"SUBSYSTEM": "sound",
			"DEVPATH":   "/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/sound/card1",
			"ID_MODEL":  "USB_Audio",
		},
	})

	if notified.Sequence != 1 || notified.Device != "card1" || notified.Model != "USB_Audio" || notified.Action != "add" {
		t.Fatalf("unexpected notification: %+v", notified)
	}
	if feed.Last() != 1 {
		t.Fatalf("expected one published event, got %d", feed.Last())
	}

	w.handleEvent(context.Background(), netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{}})
	if feed.Last() != 1 {
		t.Fatal("expected event without device path to be ignored")
	}
}
