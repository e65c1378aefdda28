package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterRetryableFailures(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return apperrors.New(apperrors.CaptureFailed, "transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	cfg := RetryConfig{Attempts: 5, BaseDelay: time.Millisecond}
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return apperrors.New(apperrors.ConfigInvalid, "bad")
	})

	if !apperrors.IsCode(err, apperrors.ConfigInvalid) {
		t.Errorf("Retry() = %v, want CONFIG_INVALID", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestFixedRetryExhaustsAttempts(t *testing.T) {
	cfg := FixedRetryConfig(5, time.Millisecond)
	var retries []int
	cfg.OnRetry = func(attempt int, _ error) { retries = append(retries, attempt) }

	notFound := errors.New("no window")
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return notFound
	})

	if !errors.Is(err, notFound) {
		t.Errorf("Retry() = %v, want %v", err, notFound)
	}
	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	if len(retries) != 4 {
		t.Errorf("OnRetry called %d times, want 4", len(retries))
	}
}

func TestFixedRetryNeverRetriesFailsafe(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), FixedRetryConfig(5, time.Millisecond), func() error {
		calls++
		return apperrors.ErrFailsafe
	})

	if !errors.Is(err, apperrors.ErrFailsafe) {
		t.Errorf("Retry() = %v, want ErrFailsafe", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := FixedRetryConfig(10, time.Hour)

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, cfg, func() error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Retry() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Retry did not return after cancel")
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, JitterFactor: 0.2}.withDefaults()

	for attempt, base := range []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second, // 1.6s clamped
		time.Second, // 3.2s clamped
		time.Second,
		time.Second, // shift capped at 6
	} {
		d := backoffDelay(cfg, attempt)
		lo := time.Duration(float64(base) * 0.89)
		hi := time.Duration(float64(base) * 1.11)
		if d < lo || d > hi {
			t.Errorf("attempt %d delay = %v, want within [%v, %v]", attempt, d, lo, hi)
		}
	}

	fixed := FixedRetryConfig(3, 2*time.Second).withDefaults()
	if d := backoffDelay(fixed, 4); d != 2*time.Second {
		t.Errorf("fixed delay = %v, want 2s", d)
	}
}
