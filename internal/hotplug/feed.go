package hotplug

import (
	"context"
	"sync"
	"time"
)

// Event is one device change published to the feed.
type Event struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Action    string    `json:"action"`
	DevPath   string    `json:"devpath,omitempty"`
	Device    string    `json:"device,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// MaxWait caps a single long poll on the feed.
const MaxWait = 25 * time.Second

// Feed stores recent events and wakes waiters when new events arrive.
type Feed struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	maxWait  time.Duration
}

// NewFeed constructs a bounded in-memory event buffer.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 256
	}
	f := &Feed{capacity: capacity, maxWait: MaxWait}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Publish appends evt, assigning its sequence number.
func (f *Feed) Publish(evt Event) Event {
	if f == nil {
		return evt
	}
	f.mu.Lock()
	f.nextSeq++
	evt.Sequence = f.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(f.buffer) == f.capacity {
		copy(f.buffer, f.buffer[1:])
		f.buffer = f.buffer[:f.capacity-1]
	}
	f.buffer = append(f.buffer, evt)
	f.cond.Broadcast()
	f.mu.Unlock()
	return evt
}

// Fetch returns events with sequence greater than since, plus the cursor to
// pass next time. When wait is true it blocks until an event arrives, ctx
// ends, or MaxWait passes for a ctx without a deadline. A deadline ending the
// wait is not an error.
func (f *Feed) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if f == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > f.capacity {
		limit = f.capacity
	}
	if _, ok := ctx.Deadline(); wait && !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.maxWait)
		defer cancel()
	}

	cancelWait := make(chan struct{})
	if wait {
		go func() {
			select {
			case <-ctx.Done():
				f.mu.Lock()
				f.cond.Broadcast()
				f.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		events, next := f.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, nil
		}
		if err := ctx.Err(); err != nil {
			if err == context.DeadlineExceeded {
				return nil, next, nil
			}
			return nil, next, err
		}
		f.cond.Wait()
	}
}

// Tail returns the most recent limit events without blocking.
func (f *Feed) Tail(limit int) ([]Event, uint64) {
	if f == nil {
		return nil, 0
	}
	if limit <= 0 || limit > f.capacity {
		limit = f.capacity
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	start := max(len(f.buffer)-limit, 0)
	out := make([]Event, len(f.buffer)-start)
	copy(out, f.buffer[start:])
	return out, f.nextSeq
}

// Last reports the newest sequence number published.
func (f *Feed) Last() uint64 {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextSeq
}

func (f *Feed) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	// A cursor ahead of the feed means the daemon restarted; replay from the
	// oldest buffered event.
	if since > f.nextSeq {
		since = 0
	}
	startIdx := -1
	for i, evt := range f.buffer {
		if evt.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, f.nextSeq
	}
	end := min(startIdx+limit, len(f.buffer))
	out := make([]Event, end-startIdx)
	copy(out, f.buffer[startIdx:end])
	return out, out[len(out)-1].Sequence
}
