package syncx

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestSharedPublishLoad(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewShared(42).WithClock(clk.Now)

	if v, at := s.Load(); v != 42 || !at.IsZero() {
		t.Errorf("Load() = %d, %v, want 42 and zero time", v, at)
	}

	s.Publish(100)
	v, at := s.Load()
	if v != 100 {
		t.Errorf("Load() after Publish = %d, want 100", v)
	}
	if !at.Equal(clk.t) {
		t.Errorf("published at %v, want %v", at, clk.t)
	}
}

func TestSharedAge(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewShared("x").WithClock(clk.Now)

	if !s.Stale(time.Hour) {
		t.Error("unpublished value should be stale")
	}

	s.Publish("y")
	clk.t = clk.t.Add(3 * time.Second)

	if got := s.Age(); got != 3*time.Second {
		t.Errorf("Age() = %v, want 3s", got)
	}
	if s.Stale(5 * time.Second) {
		t.Error("3s old value should not be stale at 5s")
	}
	if !s.Stale(2 * time.Second) {
		t.Error("3s old value should be stale at 2s")
	}
}

func TestSharedConcurrency(t *testing.T) {
	s := NewShared(0)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Publish(i)
		}()
		go func() {
			defer wg.Done()
			_ = s.Get()
			_ = s.Age()
		}()
	}
	wg.Wait()

	if got := s.Get(); got < 1 || got > 100 {
		t.Errorf("Get() = %d, want a published value", got)
	}
	if s.Stale(time.Minute) {
		t.Error("published value should not be stale")
	}
}
