// Package desktop binds the capture, pointer and window interfaces to the
// host desktop through robotgo.
package desktop

import (
	"image"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

// Screen grabs screen regions.
type Screen struct{}

// Grab captures rect in absolute screen coordinates.
func (Screen) Grab(rect image.Rectangle) (image.Image, error) {
	bit := robotgo.CaptureScreen(rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())
	if bit == nil {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "capture %v returned no bitmap", rect)
	}
	defer robotgo.FreeBitmap(bit)
	return robotgo.ToImage(bit), nil
}

// Size returns the primary display size.
func (Screen) Size() (int, int) {
	return robotgo.GetScreenSize()
}

// Mouse drives the system pointer.
type Mouse struct{}

// Move positions the pointer, easing over d when d is positive.
func (Mouse) Move(p image.Point, d time.Duration) {
	if d <= 0 {
		robotgo.Move(p.X, p.Y)
		return
	}
	// MoveSmooth takes low and high per-step delays in milliseconds.
	step := float64(d.Milliseconds()) / 10
	robotgo.MoveSmooth(p.X, p.Y, step, step)
}

// Click presses the left button at the current position.
func (Mouse) Click() {
	robotgo.Click("left", false)
}

// Position returns the current pointer position.
func (Mouse) Position() image.Point {
	x, y := robotgo.Location()
	return image.Pt(x, y)
}

// Windows finds windows through the process list.
type Windows struct{}

// Find scans running processes for a title match, activates the window and
// returns its bounds.
func (Windows) Find(titles []string) (window.Rect, error) {
	procs, err := robotgo.Process()
	if err != nil {
		return window.Rect{}, apperrors.Wrap(err, apperrors.WindowNotFound, "list processes")
	}

	for _, p := range procs {
		title := strings.ToLower(robotgo.GetTitle(p.Pid))
		if title == "" {
			continue
		}
		for _, want := range titles {
			if !strings.Contains(title, strings.ToLower(want)) {
				continue
			}
			if err := robotgo.ActivePid(p.Pid); err != nil {
				return window.Rect{}, apperrors.Wrapf(err, apperrors.WindowNotFound, "focus pid %d", p.Pid)
			}
			x, y, w, h := robotgo.GetBounds(p.Pid)
			return window.Rect{Left: x, Top: y, Width: w, Height: h}, nil
		}
	}
	return window.Rect{}, apperrors.Newf(apperrors.WindowNotFound, "no window matching %v", titles)
}
