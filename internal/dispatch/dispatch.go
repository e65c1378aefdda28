// Package dispatch turns decisions into pointer actions with small random
// offsets and per-target cooldowns.
package dispatch

import (
	"context"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/pointer"
	"github.com/GriffinCanCode/crumbot/internal/strategy"
	"github.com/GriffinCanCode/crumbot/internal/trace"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

// Movement tuning
const (
	DefaultMainJitter = 30
	BuyJitterX        = 5
	BuyJitterY        = 3

	BonusMove = 50 * time.Millisecond
	HoverMove = 50 * time.Millisecond
	BuyMove   = 80 * time.Millisecond
	AwayMove  = 100 * time.Millisecond

	// AwayInset is how far inside the bottom-right window corner the
	// pointer is parked.
	AwayInset = 20
)

// Window supplies the current game window rectangle.
type Window interface {
	Rect() window.Rect
}

// Dispatcher issues every click the bot makes. Only Buy is rate limited.
type Dispatcher struct {
	ptr        pointer.Pointer
	win        Window
	layout     *layout.Layout
	cooldown   *Cooldown
	mainJitter int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a dispatcher.
func New(ptr pointer.Pointer, win Window, l *layout.Layout, cooldown *Cooldown, mainJitter int) *Dispatcher {
	if mainJitter < 0 {
		mainJitter = DefaultMainJitter
	}
	return &Dispatcher{
		ptr:        ptr,
		win:        win,
		layout:     l,
		cooldown:   cooldown,
		mainJitter: mainJitter,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// WithSeed makes jitter deterministic.
func (d *Dispatcher) WithSeed(seed uint64) *Dispatcher {
	d.mu.Lock()
	d.rng = rand.New(rand.NewPCG(seed, seed))
	d.mu.Unlock()
	return d
}

// jitter returns a uniform offset in [-n, n].
func (d *Dispatcher) jitter(n int) int {
	if n <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(2*n+1) - n
}

// MainTarget returns the absolute position of the main click target.
func (d *Dispatcher) MainTarget() image.Point {
	rect := d.win.Rect()
	return rect.Abs(d.layout.Main(rect.Size()))
}

// ClickMain clicks near the main target.
func (d *Dispatcher) ClickMain(ctx context.Context) error {
	p := d.MainTarget().Add(image.Pt(d.jitter(d.mainJitter), d.jitter(d.mainJitter)))
	if err := d.ptr.MoveTo(ctx, p, 0); err != nil {
		return err
	}
	return d.ptr.Click(ctx)
}

// ClickBonus clicks exactly on p, ignoring cooldowns.
func (d *Dispatcher) ClickBonus(ctx context.Context, p image.Point) error {
	if err := d.ptr.MoveTo(ctx, p, BonusMove); err != nil {
		return err
	}
	if err := d.ptr.Click(ctx); err != nil {
		return err
	}
	trace.Logger(ctx).Debug("bonus clicked", "x", p.X, "y", p.Y)
	return nil
}

// Buy clicks the decision's target. It returns false without touching the
// pointer when the target was clicked less than the cooldown ago.
func (d *Dispatcher) Buy(ctx context.Context, dec strategy.Decision) (bool, error) {
	key := dec.Key()
	if !d.cooldown.Acquire(key) {
		return false, nil
	}
	p := dec.ClickPos
	if !dec.Upgrade {
		p = p.Add(image.Pt(d.jitter(BuyJitterX), d.jitter(BuyJitterY)))
	}
	if err := d.ptr.MoveTo(ctx, p, BuyMove); err != nil {
		d.cooldown.Release(key)
		return false, err
	}
	if err := d.ptr.Click(ctx); err != nil {
		d.cooldown.Release(key)
		return false, err
	}
	trace.Logger(ctx).Debug("purchase clicked", "target", key, "x", p.X, "y", p.Y)
	return true, nil
}

// Hover moves the pointer to p without clicking.
func (d *Dispatcher) Hover(ctx context.Context, p image.Point) error {
	return d.ptr.MoveTo(ctx, p, HoverMove)
}

// MoveAway parks the pointer just inside the bottom-right window corner.
func (d *Dispatcher) MoveAway(ctx context.Context) error {
	rect := d.win.Rect()
	return d.ptr.MoveTo(ctx, image.Pt(rect.Right()-AwayInset, rect.Bottom()-AwayInset), AwayMove)
}
