package bot

import (
	"sync"
	"time"
)

// Event is one entry on the live feed.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Feed keeps the most recent events and fans them out on a buffered channel.
// Emit never blocks: when no one drains the channel new events are only kept
// in the recent list.
type Feed struct {
	mu      sync.RWMutex
	recent  []Event
	maxSize int
	ch      chan Event
	dropped int
}

// NewFeed creates a feed keeping maxRecent events with a channel of buffer.
func NewFeed(maxRecent, buffer int) *Feed {
	return &Feed{
		recent:  make([]Event, 0, maxRecent),
		maxSize: maxRecent,
		ch:      make(chan Event, buffer),
	}
}

// Emit records e and offers it to the channel.
func (f *Feed) Emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	f.mu.Lock()
	f.recent = append(f.recent, e)
	if len(f.recent) > f.maxSize {
		f.recent = f.recent[len(f.recent)-f.maxSize:]
	}
	f.mu.Unlock()

	select {
	case f.ch <- e:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
	}
}

// Events returns the fan-out channel.
func (f *Feed) Events() <-chan Event { return f.ch }

// Recent returns up to n recent events of type typ, newest last. An empty
// typ matches every event.
func (f *Feed) Recent(typ string, n int) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []Event
	for i := len(f.recent) - 1; i >= 0 && (n <= 0 || len(out) < n); i-- {
		if typ == "" || f.recent[i].Type == typ {
			out = append(out, f.recent[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Dropped reports how many events missed the channel.
func (f *Feed) Dropped() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}
