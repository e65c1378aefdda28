// Package tooltip reads the exact price and production figures the game
// shows when hovering a shop row, and keeps them in a short-lived cache.
package tooltip

import (
	"strings"
	"sync"
	"time"
)

// DefaultExpiry is how long a tooltip reading stays fresh.
const DefaultExpiry = 30 * time.Second

// Entry is one tooltip reading.
type Entry struct {
	Price  float64   `json:"price"`
	Single float64   `json:"cps_single"` // production added by one more unit
	Total  float64   `json:"cps_total"`  // production of all owned units
	At     time.Time `json:"at"`
}

// Fresh reports whether the entry may still be used at now.
func (e Entry) Fresh(now time.Time, expiry time.Duration) bool {
	return !e.At.IsZero() && now.Before(e.At.Add(expiry))
}

// Cache maps building names to their latest good reading.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	expiry  time.Duration
	now     func() time.Time
}

// NewCache creates an empty cache. Non-positive expiry uses DefaultExpiry.
func NewCache(expiry time.Duration) *Cache {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Cache{entries: make(map[string]Entry), expiry: expiry, now: time.Now}
}

// WithClock replaces the clock used for freshness checks.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Expiry returns the freshness window.
func (c *Cache) Expiry() time.Duration { return c.expiry }

// Get returns the entry for name whether or not it is fresh.
func (c *Cache) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key(name)]
	return e, ok
}

// Fresh reports whether name has an entry that has not expired.
func (c *Cache) Fresh(name string) bool {
	e, ok := c.Get(name)
	return ok && e.Fresh(c.now(), c.expiry)
}

// Lookup returns the entry for name only while it is fresh.
func (c *Cache) Lookup(name string) (Entry, bool) {
	e, ok := c.Get(name)
	if !ok || !e.Fresh(c.now(), c.expiry) {
		return Entry{}, false
	}
	return e, true
}

// Put stores e for name.
func (c *Cache) Put(name string, e Entry) {
	c.mu.Lock()
	c.entries[key(name)] = e
	c.mu.Unlock()
}

// Len returns the number of entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of the cache contents.
func (c *Cache) Entries() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }
