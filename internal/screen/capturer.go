// Package screen provides region capture and the image filters applied
// before text recognition.
package screen

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/vcaesar/imgo"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

// Capturer returns the pixels of an absolute screen rectangle. name labels
// the region for logs and debug output.
type Capturer interface {
	Capture(ctx context.Context, name string, rect image.Rectangle) (image.Image, error)
}

// Grabber is a raw platform capture backend.
type Grabber interface {
	Grab(rect image.Rectangle) (image.Image, error)
}

// Screen wraps a Grabber with validation, error codes and optional debug
// snapshots written to disk.
type Screen struct {
	grabber Grabber
	debug   atomic.Bool
	dir     string
	now     func() time.Time
}

// New creates a capturer. When debugDir is non-empty and debug is enabled,
// every capture is saved as <dir>/<name>_<unixms>.png.
func New(g Grabber, debug bool, debugDir string) *Screen {
	s := &Screen{grabber: g, dir: debugDir, now: time.Now}
	s.debug.Store(debug && debugDir != "")
	if s.debug.Load() {
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			slog.Warn("debug screenshots disabled", "dir", debugDir, "error", err)
			s.debug.Store(false)
		}
	}
	return s
}

// SetDebug toggles debug snapshots at runtime.
func (s *Screen) SetDebug(on bool) { s.debug.Store(on && s.dir != "") }

// Capture grabs rect. Empty rectangles are rejected without touching the backend.
func (s *Screen) Capture(ctx context.Context, name string, rect image.Rectangle) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rect.Empty() {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "empty capture region %s", name).
			WithMetadata("rect", rect.String())
	}
	img, err := s.grabber.Grab(rect)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CaptureFailed, "capture %s", name)
	}
	if img == nil {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "capture %s returned no image", name)
	}
	if s.debug.Load() {
		s.save(name, img)
	}
	return img, nil
}

// Save writes img into the debug directory regardless of the debug toggle.
func (s *Screen) Save(name string, img image.Image) {
	if s.dir == "" {
		return
	}
	s.save(name, img)
}

func (s *Screen) save(name string, img image.Image) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%d.png", name, s.now().UnixMilli()))
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		slog.Debug("debug screenshot failed", "path", path, "error", err)
		return
	}
	if err := imgo.Save(path, img); err != nil {
		slog.Debug("debug screenshot failed", "path", path, "error", err)
	}
}
