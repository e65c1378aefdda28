package tooltip

import (
	"context"
	"image"
	"sort"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/screen"
	"github.com/GriffinCanCode/crumbot/internal/trace"
	"github.com/GriffinCanCode/crumbot/internal/vision"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

// Tooltip read defaults
const (
	DefaultBatchSize   = 3
	DefaultMinInterval = 60 * time.Second
	DefaultSettle      = 200 * time.Millisecond

	// DarkCut is the mean row luminance below which a row belongs to the
	// tooltip panel.
	DarkCut = 80
)

// Hand moves the pointer on behalf of the refresher.
type Hand interface {
	Hover(ctx context.Context, p image.Point) error
	MoveAway(ctx context.Context) error
}

// Window supplies the current game window rectangle.
type Window interface {
	Rect() window.Rect
}

// Options tune the refresher.
type Options struct {
	BatchSize   int
	MinInterval time.Duration
	Settle      time.Duration
}

// Refresher hovers shop rows and stores what their tooltips say.
type Refresher struct {
	cache  *Cache
	hand   Hand
	cap    screen.Capturer
	rec    vision.Recognizer
	layout *layout.Layout
	win    Window
	opts   Options

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	observe func(name string, ok bool)

	mu       sync.Mutex
	lastPass time.Time
}

// NewRefresher wires a refresher. Zero options take the defaults.
func NewRefresher(cache *Cache, hand Hand, capturer screen.Capturer, rec vision.Recognizer, l *layout.Layout, win Window, opts Options) *Refresher {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.Settle < 0 {
		opts.Settle = DefaultSettle
	}
	return &Refresher{
		cache:   cache,
		hand:    hand,
		cap:     capturer,
		rec:     rec,
		layout:  l,
		win:     win,
		opts:    opts,
		now:     time.Now,
		sleep:   sleepCtx,
		observe: func(string, bool) {},
	}
}

// WithClock replaces the clock and the settle wait, for tests.
func (r *Refresher) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Refresher {
	r.now = now
	if sleep != nil {
		r.sleep = sleep
	}
	return r
}

// OnRead registers a callback fired after every tooltip read.
func (r *Refresher) OnRead(fn func(name string, ok bool)) *Refresher {
	r.observe = fn
	return r
}

// Cache returns the cache the refresher writes to.
func (r *Refresher) Cache() *Cache { return r.cache }

// Targets picks at most BatchSize rows to read. Nothing is read unless an
// affordable row lacks a fresh entry or MinInterval has passed since the
// last pass. Stale rows come first, affordable ones ahead of the rest;
// with nothing stale the most expensive affordable rows are re-read.
func (r *Refresher) Targets(snap *game.Snapshot) []game.Building {
	now := r.now()
	var staleAffordable, staleOther, affordable []game.Building
	for _, b := range snap.Buildings {
		fresh := r.fresh(b.Name, now)
		switch {
		case !fresh && b.Affordable:
			staleAffordable = append(staleAffordable, b)
		case !fresh:
			staleOther = append(staleOther, b)
		case b.Affordable:
			affordable = append(affordable, b)
		}
	}

	r.mu.Lock()
	due := r.lastPass.IsZero() || now.Sub(r.lastPass) >= r.opts.MinInterval
	r.mu.Unlock()
	if len(staleAffordable) == 0 && !due {
		return nil
	}

	targets := append(staleAffordable, staleOther...)
	if len(targets) == 0 {
		sort.SliceStable(affordable, func(i, j int) bool {
			return affordable[i].Cost.Value > affordable[j].Cost.Value
		})
		targets = affordable
	}
	if len(targets) > r.opts.BatchSize {
		targets = targets[:r.opts.BatchSize]
	}
	return targets
}

func (r *Refresher) fresh(name string, now time.Time) bool {
	e, ok := r.cache.Get(name)
	return ok && e.Fresh(now, r.cache.Expiry())
}

// MaybeRefresh reads the tooltips chosen by Targets and returns how many
// produced a usable entry. Only the emergency stop and cancellation are
// returned as errors.
func (r *Refresher) MaybeRefresh(ctx context.Context, snap *game.Snapshot) (int, error) {
	targets := r.Targets(snap)
	if len(targets) == 0 {
		return 0, nil
	}
	ctx, span := trace.StartSpan(ctx, "tooltip_refresh")
	defer span.End()
	log := trace.Logger(ctx)

	updated := 0
	for _, b := range targets {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		e, ok, err := r.Read(ctx, b)
		if err != nil {
			if apperrors.IsFailsafe(err) || ctx.Err() != nil {
				return updated, err
			}
			log.Debug("tooltip read failed", "building", b.Name, "error", err)
		}
		r.observe(b.Name, ok)
		if !ok {
			continue
		}
		r.cache.Put(b.Name, e)
		updated++
		log.Info("tooltip read", "building", b.Name, "price", e.Price, "cps_single", e.Single, "cps_total", e.Total)
	}

	r.mu.Lock()
	r.lastPass = r.now()
	r.mu.Unlock()
	span.SetAttr("updated", updated)
	return updated, nil
}

// Read hovers b's row and parses its tooltip. ok is false when the price or
// per-unit production could not be read. The pointer is always moved away.
func (r *Refresher) Read(ctx context.Context, b game.Building) (e Entry, ok bool, err error) {
	rect := r.win.Rect()
	size := rect.Size()
	row := r.layout.Row(b.Row, size)
	cy := (row.Min.Y + row.Max.Y) / 2

	if err := r.hand.Hover(ctx, rect.Abs(r.layout.TooltipHover(cy, size))); err != nil {
		return Entry{}, false, err
	}
	defer func() {
		if awayErr := r.hand.MoveAway(ctx); awayErr != nil && err == nil {
			err = awayErr
		}
	}()
	if err := r.sleep(ctx, r.opts.Settle); err != nil {
		return Entry{}, false, err
	}

	img, err := r.capture(ctx, b.Name, rect, cy)
	if err != nil {
		return Entry{}, false, err
	}
	text, err := r.rec.Recognize(ctx, screen.TooltipPrep.Apply(img), vision.Block)
	if err != nil {
		return Entry{}, false, err
	}

	e = Parse(text)
	e.At = r.now()
	return e, e.Price > 0 && e.Single > 0, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// capture grabs the tooltip panel, locating it by its dark background and
// falling back to fixed offsets from the row centre.
func (r *Refresher) capture(ctx context.Context, name string, rect window.Rect, cy int) (image.Image, error) {
	search, fixed, ok := r.layout.TooltipBands(cy, rect.Size())
	if !search.Empty() {
		img, err := r.cap.Capture(ctx, "tooltip_search", rect.AbsRect(search))
		if err == nil {
			if top, bottom, found := screen.DarkBand(img, DarkCut, r.layout.Tooltip.MinHeight); found {
				if si, isSub := img.(subImager); isSub {
					b := img.Bounds()
					return si.SubImage(image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Min.Y+bottom)), nil
				}
				band := image.Rect(search.Min.X, search.Min.Y+top, search.Max.X, search.Min.Y+bottom)
				return r.cap.Capture(ctx, "tooltip_"+name, rect.AbsRect(band))
			}
		} else if apperrors.IsFailsafe(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, apperrors.Newf(apperrors.CaptureFailed, "tooltip band for %s too small", name)
	}
	return r.cap.Capture(ctx, "tooltip_"+name, rect.AbsRect(fixed))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
