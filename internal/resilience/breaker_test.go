package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *stepClock) {
	clk := &stepClock{t: time.Unix(1000, 0)}
	return New(cfg).WithClock(clk.Now), clk
}

func TestBreakerInitialState(t *testing.T) {
	b := New(DefaultConfig("ocr"))
	if b.State() != Closed {
		t.Errorf("initial state = %v, want Closed", b.State())
	}
	if b.Name() != "ocr" {
		t.Errorf("Name() = %q, want ocr", b.Name())
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Minute})

	b.Failure()
	b.Failure()
	if b.State() != Closed {
		t.Fatalf("state = %v after 2 failures, want Closed", b.State())
	}
	b.Failure()

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2, ResetTimeout: time.Minute})

	b.Failure()
	b.Success()
	b.Failure()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b, clk := newTestBreaker(Config{Threshold: 1, ResetTimeout: 10 * time.Second, HalfOpenSuccesses: 2})
	b.Failure()

	clk.Advance(5 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow() before timeout = %v, want ErrOpen", err)
	}

	clk.Advance(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v, want nil", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want HalfOpen", b.State())
	}

	b.Success()
	b.Success()
	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, clk := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 3})
	b.Failure()
	clk.Advance(2 * time.Second)
	_ = b.Allow()

	b.Failure()

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
}

func TestBreakerHook(t *testing.T) {
	var transitions []string
	b, _ := newTestBreaker(Config{Name: "remote", Threshold: 1})
	b.WithHook(func(name string, from, to State) {
		transitions = append(transitions, name+":"+from.String()+"->"+to.String())
	})

	b.Failure()
	b.Reset()

	want := []string{"remote:closed->open", "remote:open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestExecuteWithResult(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Minute})

	got, err := ExecuteWithResult(b, func() (string, error) { return "42", nil })
	if err != nil || got != "42" {
		t.Fatalf("ExecuteWithResult() = %q, %v", got, err)
	}

	boom := errors.New("boom")
	if _, err := ExecuteWithResult(b, func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("ExecuteWithResult() error = %v, want boom", err)
	}

	called := false
	_, err = ExecuteWithResult(b, func() (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, ErrOpen) || called {
		t.Errorf("open breaker should reject without calling fn (err=%v, called=%v)", err, called)
	}
}

func TestBreakerConcurrent(t *testing.T) {
	b := New(Config{Threshold: 1000, ResetTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Execute(func() error {
				if i%2 == 0 {
					return errors.New("fail")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}
