// Package layout describes where things are on the game screen. Every
// coordinate lives in a reference resolution and is scaled to the actual
// window size at use, so recalibrating means editing a YAML file.
package layout

import (
	"image"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
)

// Size is a width/height pair in pixels.
type Size struct {
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Box is an axis-aligned region (left, top, right, bottom) in reference space.
type Box struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

// Point is a reference-space coordinate.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Shop is the building list geometry.
type Shop struct {
	Left      int `yaml:"left"`
	StartY    int `yaml:"start_y"`
	RowHeight int `yaml:"row_height"`
}

// Strip is the upgrade icon row.
type Strip struct {
	X     int `yaml:"x"`
	Y     int `yaml:"y"`
	Step  int `yaml:"step"`
	Slots int `yaml:"slots"`
	Icon  int `yaml:"icon"` // icon edge length
}

// Tooltip is the hover tooltip geometry, in its own reference space.
type Tooltip struct {
	Reference Size `yaml:"reference"`
	Left      int  `yaml:"left"`
	Right     int  `yaml:"right"`
	Above     int  `yaml:"above"` // fixed-offset fallback, relative to row centre
	Below     int  `yaml:"below"`
	Search    int  `yaml:"search"` // half-height of the strip scanned for the dark band
	HoverX    int  `yaml:"hover_x"`
	MinHeight int  `yaml:"min_height"`
}

// Layout is the full screen calibration.
type Layout struct {
	Reference  Size           `yaml:"reference"`
	Regions    map[string]Box `yaml:"regions"`
	Shop       Shop           `yaml:"shop"`
	Upgrades   Strip          `yaml:"upgrades"`
	MainTarget Point          `yaml:"main_target"`
	Tooltip    Tooltip        `yaml:"tooltip"`
}

// Region names used by the reader.
const (
	RegionCookies = "cookie_count"
	RegionRate    = "cps"
	RegionShop    = "shop"
	RegionStrip   = "upgrades"
	RegionBonus   = "golden_area"
)

// Default returns the calibration for a 1456x800 game window.
func Default() *Layout {
	return &Layout{
		Reference: Size{W: 1456, H: 800},
		Regions: map[string]Box{
			RegionCookies: {85, 95, 395, 150},
			RegionRate:    {85, 150, 395, 178},
			RegionShop:    {1160, 60, 1456, 780},
			RegionStrip:   {1160, 90, 1456, 145},
			RegionBonus:   {0, 60, 1160, 780},
		},
		Shop:       Shop{Left: 1160, StartY: 185, RowHeight: 60},
		Upgrades:   Strip{X: 1168, Y: 112, Step: 50, Slots: 8, Icon: 44},
		MainTarget: Point{X: 215, Y: 430},
		Tooltip: Tooltip{
			Reference: Size{W: 1920, H: 1080},
			Left:      775,
			Right:     1145,
			Above:     130,
			Below:     69,
			Search:    260,
			HoverX:    1165,
			MinHeight: 30,
		},
	}
}

// Load overlays the YAML file at path on Default. An empty path returns Default.
func Load(path string) (*Layout, error) {
	l := Default()
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "read layout %s", path)
	}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "decode layout %s", path)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks the calibration can be scaled.
func (l *Layout) Validate() error {
	if l.Reference.W <= 0 || l.Reference.H <= 0 {
		return apperrors.New(apperrors.ConfigInvalid, "layout reference size must be positive")
	}
	if l.Tooltip.Reference.W <= 0 || l.Tooltip.Reference.H <= 0 {
		return apperrors.New(apperrors.ConfigInvalid, "tooltip reference size must be positive")
	}
	if l.Shop.RowHeight <= 0 {
		return apperrors.New(apperrors.ConfigInvalid, "shop row height must be positive")
	}
	for _, name := range []string{RegionCookies, RegionRate, RegionStrip, RegionBonus} {
		if _, ok := l.Regions[name]; !ok {
			return apperrors.Newf(apperrors.ConfigInvalid, "layout region %q missing", name)
		}
	}
	return nil
}

// Scaler maps reference coordinates onto a window of a given size.
type Scaler struct {
	sx, sy float64
}

// ScalerFor returns a scaler from reference space ref to window size.
func ScalerFor(ref Size, window Size) Scaler {
	return Scaler{sx: float64(window.W) / float64(ref.W), sy: float64(window.H) / float64(ref.H)}
}

// X scales a horizontal reference coordinate.
func (s Scaler) X(v int) int { return int(float64(v) * s.sx) }

// Y scales a vertical reference coordinate.
func (s Scaler) Y(v int) int { return int(float64(v) * s.sy) }

// Box scales a reference box into a window-relative rectangle.
func (s Scaler) Box(b Box) image.Rectangle {
	return image.Rect(s.X(b.Left), s.Y(b.Top), s.X(b.Right), s.Y(b.Bottom))
}

// Point scales a reference point.
func (s Scaler) Point(p Point) image.Point {
	return image.Pt(s.X(p.X), s.Y(p.Y))
}

// Region returns the named region scaled to window, relative to its origin.
func (l *Layout) Region(name string, window Size) (image.Rectangle, bool) {
	b, ok := l.Regions[name]
	if !ok {
		return image.Rectangle{}, false
	}
	return ScalerFor(l.Reference, window).Box(b), true
}

// Row returns the window-relative rectangle of shop row i. The row extends to
// the right edge of the window.
func (l *Layout) Row(i int, window Size) image.Rectangle {
	s := ScalerFor(l.Reference, window)
	top := s.Y(l.Shop.StartY + i*l.Shop.RowHeight)
	bottom := top + s.Y(l.Shop.RowHeight)
	return image.Rect(s.X(l.Shop.Left), top, window.W, bottom)
}

// UpgradeSlot returns the window-relative centre of upgrade slot i.
func (l *Layout) UpgradeSlot(i int, window Size) image.Point {
	s := ScalerFor(l.Reference, window)
	return image.Pt(s.X(l.Upgrades.X+i*l.Upgrades.Step), s.Y(l.Upgrades.Y))
}

// UpgradeIcon returns the window-relative rectangle sampled to decide whether
// slot i holds an icon.
func (l *Layout) UpgradeIcon(i int, window Size) image.Rectangle {
	c := l.UpgradeSlot(i, window)
	s := ScalerFor(l.Reference, window)
	half := image.Pt(s.X(l.Upgrades.Icon)/2, s.Y(l.Upgrades.Icon)/2)
	return image.Rectangle{Min: c.Sub(half), Max: c.Add(half)}
}

// Main returns the window-relative main click target.
func (l *Layout) Main(window Size) image.Point {
	return ScalerFor(l.Reference, window).Point(l.MainTarget)
}

// TooltipHover returns the window-relative hover point for a row centred at y.
func (l *Layout) TooltipHover(rowCenterY int, window Size) image.Point {
	return image.Pt(ScalerFor(l.Tooltip.Reference, window).X(l.Tooltip.HoverX), rowCenterY)
}

// TooltipBands returns the window-relative strip searched for the tooltip box
// and the fixed-offset rectangle used when the box cannot be located. Both
// are clamped to the window; ok is false when the fixed rectangle is shorter
// than the configured minimum.
func (l *Layout) TooltipBands(rowCenterY int, window Size) (search, fixed image.Rectangle, ok bool) {
	s := ScalerFor(l.Tooltip.Reference, window)
	bounds := image.Rect(0, 0, window.W, window.H)
	left, right := s.X(l.Tooltip.Left), s.X(l.Tooltip.Right)

	search = image.Rect(left, rowCenterY-s.Y(l.Tooltip.Search), right, rowCenterY+s.Y(l.Tooltip.Search)).Intersect(bounds)
	fixed = image.Rect(left, rowCenterY-s.Y(l.Tooltip.Above), right, rowCenterY+s.Y(l.Tooltip.Below)).Intersect(bounds)
	return search, fixed, fixed.Dy() >= l.Tooltip.MinHeight
}
