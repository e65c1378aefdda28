// Package window locates the game window and maps window-relative
// coordinates onto the screen.
package window

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/resilience"
)

// Rect is the game window in absolute screen coordinates.
type Rect struct {
	Left, Top, Width, Height int
}

func (r Rect) Right() int  { return r.Left + r.Width }
func (r Rect) Bottom() int { return r.Top + r.Height }

// Center returns the absolute centre of the window.
func (r Rect) Center() image.Point {
	return image.Pt(r.Left+r.Width/2, r.Top+r.Height/2)
}

// Abs converts a window-relative point to absolute screen coordinates.
func (r Rect) Abs(p image.Point) image.Point {
	return image.Pt(r.Left+p.X, r.Top+p.Y)
}

// AbsRect converts a window-relative rectangle to absolute coordinates.
func (r Rect) AbsRect(rr image.Rectangle) image.Rectangle {
	return rr.Add(image.Pt(r.Left, r.Top))
}

// Contains reports whether the absolute point lies inside the window.
func (r Rect) Contains(p image.Point) bool {
	return p.In(image.Rect(r.Left, r.Top, r.Right(), r.Bottom()))
}

// Size returns the window size for layout scaling.
func (r Rect) Size() layout.Size { return layout.Size{W: r.Width, H: r.Height} }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

// Provider finds a window whose title contains one of titles
// (case-insensitive) and brings it to the foreground.
type Provider interface {
	Find(titles []string) (Rect, error)
}

// Locator owns the current window rectangle and re-queries it on demand.
type Locator struct {
	provider Provider
	titles   []string
	retry    resilience.RetryConfig
	pause    time.Duration

	mu   sync.RWMutex
	rect Rect
}

// NewLocator creates a locator polling attempts times, delay apart.
func NewLocator(p Provider, titles []string, attempts int, delay, focusPause time.Duration) *Locator {
	return &Locator{
		provider: p,
		titles:   titles,
		retry:    resilience.FixedRetryConfig(attempts, delay),
		pause:    focusPause,
	}
}

// Locate finds the window, retrying while it is absent. Exhausting the
// attempts returns a WINDOW_NOT_FOUND error.
func (l *Locator) Locate(ctx context.Context) (Rect, error) {
	var found Rect
	cfg := l.retry
	cfg.OnRetry = func(attempt int, err error) {
		slog.Warn("game window not found, retrying", "attempt", attempt, "max", cfg.Attempts, "error", err)
	}
	err := resilience.Retry(ctx, cfg, func() error {
		r, err := l.provider.Find(l.titles)
		if err != nil {
			return err
		}
		if r.Empty() {
			return apperrors.New(apperrors.WindowNotFound, "window has no area")
		}
		found = r
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Rect{}, ctx.Err()
		}
		return Rect{}, apperrors.Wrapf(err, apperrors.WindowNotFound, "no window titled %v after %d attempts", l.titles, cfg.Attempts)
	}

	if l.pause > 0 {
		select {
		case <-ctx.Done():
			return Rect{}, ctx.Err()
		case <-time.After(l.pause):
		}
	}

	l.mu.Lock()
	l.rect = found
	l.mu.Unlock()
	slog.Info("game window located", "rect", found.String())
	return found, nil
}

// Refresh re-queries the window once and reports whether it moved.
func (l *Locator) Refresh() (bool, error) {
	r, err := l.provider.Find(l.titles)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.WindowNotFound, "refresh window")
	}
	if r.Empty() {
		return false, apperrors.New(apperrors.WindowNotFound, "window has no area")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	moved := r != l.rect
	l.rect = r
	if moved {
		slog.Info("game window moved", "rect", r.String())
	}
	return moved, nil
}

// Rect returns the last known window rectangle.
func (l *Locator) Rect() Rect {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rect
}
