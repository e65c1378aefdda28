// Package pointer moves and clicks the system pointer behind an emergency
// stop: parking the pointer in the reserved top-left corner halts the bot.
package pointer

import (
	"context"
	"image"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

// Device is a raw pointer backend.
type Device interface {
	Move(p image.Point, d time.Duration)
	Click()
	Position() image.Point
}

// Pointer is the guarded pointer used by every component that moves the mouse.
type Pointer interface {
	MoveTo(ctx context.Context, p image.Point, d time.Duration) error
	Click(ctx context.Context) error
	Position() image.Point
}

// Guard wraps a Device and checks the reserved corner before and after
// every action.
type Guard struct {
	dev    Device
	corner image.Rectangle
}

// NewGuard reserves the square of side corner pixels at the screen origin.
func NewGuard(dev Device, corner int) *Guard {
	return &Guard{dev: dev, corner: image.Rect(0, 0, corner+1, corner+1)}
}

// Tripped reports whether the pointer currently sits in the reserved corner.
func (g *Guard) Tripped() bool {
	return g.dev.Position().In(g.corner)
}

func (g *Guard) check(ctx context.Context) error {
	if g.Tripped() {
		return apperrors.ErrFailsafe
	}
	return ctx.Err()
}

// MoveTo moves the pointer to p over d.
func (g *Guard) MoveTo(ctx context.Context, p image.Point, d time.Duration) error {
	if err := g.check(ctx); err != nil {
		return err
	}
	g.dev.Move(p, d)
	if g.Tripped() && !p.In(g.corner) {
		return apperrors.ErrFailsafe
	}
	return nil
}

// Click clicks at the current position.
func (g *Guard) Click(ctx context.Context) error {
	if err := g.check(ctx); err != nil {
		return err
	}
	g.dev.Click()
	return nil
}

// Position returns the current pointer position.
func (g *Guard) Position() image.Point { return g.dev.Position() }
