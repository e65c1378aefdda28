// Package reader turns captured screen regions into game values.
package reader

import (
	"context"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/crumbot/internal/game"
	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/matcher"
	"github.com/GriffinCanCode/crumbot/internal/numparse"
	"github.com/GriffinCanCode/crumbot/internal/screen"
	"github.com/GriffinCanCode/crumbot/internal/trace"
	"github.com/GriffinCanCode/crumbot/internal/vision"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

// Reader tuning
const (
	// OccupiedVariance is the icon luminance variance above which an
	// upgrade slot is taken to hold an icon.
	OccupiedVariance = 150.0

	// MinPricePixels is how many coloured price pixels a row needs before
	// its colour is trusted.
	MinPricePixels = 12
)

var countAtEnd = regexp.MustCompile(`\b(\d+)\s*$`)

// Window supplies the current game window rectangle.
type Window interface {
	Rect() window.Rect
}

// ScreenReader implements game.Reader on top of screen captures.
type ScreenReader struct {
	cap      screen.Capturer
	ocr      *vision.HashSkip
	layout   *layout.Layout
	win      Window
	detector *matcher.Detector
}

// New creates a reader. ocr caches shop row text between unchanged frames.
func New(capturer screen.Capturer, ocr *vision.HashSkip, l *layout.Layout, win Window, detector *matcher.Detector) *ScreenReader {
	return &ScreenReader{cap: capturer, ocr: ocr, layout: l, win: win, detector: detector}
}

var _ game.Reader = (*ScreenReader)(nil)

// Cookies reads the cookie stock.
func (r *ScreenReader) Cookies(ctx context.Context) (float64, error) {
	return r.readNumber(ctx, layout.RegionCookies)
}

// Rate reads the production per second.
func (r *ScreenReader) Rate(ctx context.Context) (float64, error) {
	return r.readNumber(ctx, layout.RegionRate)
}

func (r *ScreenReader) readNumber(ctx context.Context, region string) (float64, error) {
	text, err := r.readRegion(ctx, region)
	if err != nil {
		return 0, err
	}
	v := numparse.Parse(text)
	trace.Logger(ctx).Debug("ocr read", "region", region, "text", text, "value", v)
	return v, nil
}

func (r *ScreenReader) readRegion(ctx context.Context, region string) (string, error) {
	rect := r.win.Rect()
	rel, ok := r.layout.Region(region, rect.Size())
	if !ok {
		return "", nil
	}
	img, err := r.cap.Capture(ctx, region, rect.AbsRect(rel))
	if err != nil {
		return "", err
	}
	return r.ocr.Recognizer().Recognize(ctx, screen.LinePrep.Apply(img), vision.Line)
}

// Shop reads every visible shop row in catalog order. It returns nil when
// no row yielded a price, so the previous list is kept.
func (r *ScreenReader) Shop(ctx context.Context) ([]game.Building, error) {
	rect := r.win.Rect()
	size := rect.Size()
	log := trace.Logger(ctx)

	var rows []game.Building
	seen := false
	for i, kind := range game.Catalog {
		rel := r.layout.Row(i, size)
		if rel.Max.Y > size.H {
			break
		}
		img, err := r.cap.Capture(ctx, "shop_row", rect.AbsRect(rel))
		if err != nil {
			return nil, err
		}
		text, err := r.ocr.Read(ctx, "shop_row_"+strconv.Itoa(i), screen.LinePrep.Apply(img), vision.Line)
		if err != nil {
			return nil, err
		}
		cost, count := ParseRow(text)
		if cost > 0 {
			seen = true
		}
		center := image.Pt((rel.Min.X+rel.Max.X)/2, (rel.Min.Y+rel.Max.Y)/2)
		rows = append(rows, game.Building{
			Name:     kind.Name,
			Cost:     game.Observed(cost),
			Count:    count,
			Lit:      PriceLit(img),
			Row:      i,
			ClickPos: rect.Abs(center),
		})
		log.Debug("shop row", "row", i, "building", kind.Name, "text", text, "cost", cost, "count", count)
	}
	if !seen {
		return nil, nil
	}
	return rows, nil
}

// Upgrades returns the occupied slots of the upgrade strip that fit in the window.
func (r *ScreenReader) Upgrades(ctx context.Context) ([]game.Upgrade, error) {
	rect := r.win.Rect()
	size := rect.Size()

	var ups []game.Upgrade
	for i := 0; i < r.layout.Upgrades.Slots; i++ {
		icon := r.layout.UpgradeIcon(i, size)
		if icon.Max.X > size.W {
			break
		}
		img, err := r.cap.Capture(ctx, "upgrade_slot", rect.AbsRect(icon))
		if err != nil {
			return nil, err
		}
		if screen.Variance(img) < OccupiedVariance {
			continue
		}
		ups = append(ups, game.Upgrade{Index: i, ClickPos: rect.Abs(r.layout.UpgradeSlot(i, size))})
	}
	return ups, nil
}

// FindBonus looks for the golden bonus and returns its absolute position.
func (r *ScreenReader) FindBonus(ctx context.Context) (image.Point, bool, error) {
	rect := r.win.Rect()
	rel, ok := r.layout.Region(layout.RegionBonus, rect.Size())
	if !ok {
		return image.Point{}, false, nil
	}
	abs := rect.AbsRect(rel)
	img, err := r.cap.Capture(ctx, layout.RegionBonus, abs)
	if err != nil {
		return image.Point{}, false, err
	}
	m, found := r.detector.Locate(img)
	if !found {
		return image.Point{}, false, nil
	}
	p := abs.Min.Add(m.Center.Sub(img.Bounds().Min))
	trace.Logger(ctx).Info("bonus found", "x", p.X, "y", p.Y, "method", m.Method, "score", m.Score)
	return p, true, nil
}

// ParseRow splits shop row text into price and owned count. A trailing
// integer is the count only when another number precedes it.
func ParseRow(text string) (cost float64, count int) {
	text = strings.TrimSpace(text)
	if loc := countAtEnd.FindStringSubmatchIndex(text); loc != nil && hasDigit(text[:loc[0]]) {
		count, _ = strconv.Atoi(text[loc[2]:loc[3]])
		text = text[:loc[0]]
	}
	return numparse.Parse(text), count
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

// PriceLit reports whether the row's price is drawn in the purchasable
// (green) colour rather than the unaffordable (red) one.
func PriceLit(img image.Image) bool {
	var green, red int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r32, g32, b32, _ := img.At(x, y).RGBA()
			rr, gg, bb := int(r32>>8), int(g32>>8), int(b32>>8)
			switch {
			case gg > 140 && gg > rr+50 && gg > bb+50:
				green++
			case rr > 140 && rr > gg+50 && rr > bb+50:
				red++
			}
		}
	}
	return green >= MinPricePixels && green > red
}
