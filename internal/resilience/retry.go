package resilience

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

// Retry configuration constants
const (
	DefaultAttempts     = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultJitterFactor = 0.2

	// Window discovery polls at a fixed pace while the game is starting up.
	WindowAttempts = 5
	WindowDelay    = 2 * time.Second
)

// RetryConfig holds retry settings. Attempts counts total calls, not retries.
type RetryConfig struct {
	Attempts     int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	Fixed        bool // constant delay instead of exponential backoff
	IsRetryable  func(error) bool
	OnRetry      func(attempt int, err error)
}

// DefaultRetryConfig returns exponential backoff retrying AppError codes
// marked retryable.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     DefaultAttempts,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  apperrors.IsRetryable,
	}
}

// FixedRetryConfig polls attempts times, delay apart, retrying every error
// except the emergency stop.
func FixedRetryConfig(attempts int, delay time.Duration) RetryConfig {
	return RetryConfig{
		Attempts:    attempts,
		BaseDelay:   delay,
		MaxDelay:    delay,
		Fixed:       true,
		IsRetryable: func(err error) bool { return !apperrors.IsFailsafe(err) },
	}
}

// Retry executes fn until it succeeds, the error is not retryable, attempts
// run out or ctx ends. Returns the last error.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if !cfg.IsRetryable(lastErr) || attempt == cfg.Attempts-1 {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt)
		slog.Debug("retrying after error", "attempt", attempt+1, "max", cfg.Attempts, "delay", delay, "error", lastErr)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	if cfg.Fixed {
		return cfg.BaseDelay
	}
	delay := cfg.BaseDelay << min(attempt, 6)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := float64(delay) * cfg.JitterFactor * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.JitterFactor <= 0 && !c.Fixed {
		c.JitterFactor = DefaultJitterFactor
	}
	if c.IsRetryable == nil {
		c.IsRetryable = apperrors.IsRetryable
	}
	return c
}
