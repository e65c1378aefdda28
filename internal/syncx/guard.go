// Package syncx provides extended synchronization primitives
package syncx

import (
	"sync"
	"time"
)

// Shared holds a value published by one writer and read by many loops.
// Every publication is stamped so readers can bound how stale their view is.
type Shared[T any] struct {
	mu    sync.RWMutex
	value T
	at    time.Time
	now   func() time.Time
}

// NewShared creates a shared value. The initial value counts as unpublished.
func NewShared[T any](initial T) *Shared[T] {
	return &Shared[T]{value: initial, now: time.Now}
}

// WithClock replaces the clock used for publication stamps.
func (s *Shared[T]) WithClock(now func() time.Time) *Shared[T] {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Load returns the current value and when it was published.
func (s *Shared[T]) Load() (T, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.at
}

// Get returns the current value (T should be a value type or immutable).
func (s *Shared[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Publish replaces the value and stamps it.
func (s *Shared[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.at = s.now()
}

// Age reports how long ago the value was published. Unpublished values are
// infinitely old.
func (s *Shared[T]) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.at.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return s.now().Sub(s.at)
}

// Stale reports whether the value is older than maxAge.
func (s *Shared[T]) Stale(maxAge time.Duration) bool {
	return s.Age() > maxAge
}
