package dispatch

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between two clicks on one target.
const DefaultCooldown = 500 * time.Millisecond

// Cooldown tracks the last click per target key.
type Cooldown struct {
	mu     sync.Mutex
	last   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewCooldown creates a tracker. Negative windows disable it.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{last: make(map[string]time.Time), window: window, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (c *Cooldown) WithClock(now func() time.Time) *Cooldown {
	c.now = now
	return c
}

// Acquire stamps key and reports true when key may be clicked now. The
// check and the stamp happen under one lock so concurrent callers cannot
// both pass.
func (c *Cooldown) Acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if last, ok := c.last[key]; ok && now.Sub(last) < c.window {
		return false
	}
	c.last[key] = now
	return true
}

// Release drops the stamp on key after a click that did not happen.
func (c *Cooldown) Release(key string) {
	c.mu.Lock()
	delete(c.last, key)
	c.mu.Unlock()
}
