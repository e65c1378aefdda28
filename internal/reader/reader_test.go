package reader

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/crumbot/internal/layout"
	"github.com/GriffinCanCode/crumbot/internal/matcher"
	"github.com/GriffinCanCode/crumbot/internal/vision"
	"github.com/GriffinCanCode/crumbot/internal/window"
)

type mockCapturer struct {
	fn    func(name string, r image.Rectangle) image.Image
	calls []string
}

func (m *mockCapturer) Capture(_ context.Context, name string, r image.Rectangle) (image.Image, error) {
	m.calls = append(m.calls, name)
	return m.fn(name, r), nil
}

type scriptedRecognizer struct {
	texts []string
	i     int
}

func (s *scriptedRecognizer) Recognize(context.Context, image.Image, vision.Mode) (string, error) {
	if s.i >= len(s.texts) {
		return "", nil
	}
	t := s.texts[s.i]
	s.i++
	return t, nil
}
func (s *scriptedRecognizer) Name() string { return "scripted" }
func (s *scriptedRecognizer) Close() error { return nil }

type fixedWindow struct{ r window.Rect }

func (f fixedWindow) Rect() window.Rect { return f.r }

func flat(r image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for i := range img.Pix {
		img.Pix[i] = 40
	}
	return img
}

func checker(r image.Rectangle) image.Image {
	img := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 250})
			}
		}
	}
	return img
}

func newReader(capFn func(string, image.Rectangle) image.Image, texts ...string) (*ScreenReader, *mockCapturer) {
	c := &mockCapturer{fn: capFn}
	rec := &scriptedRecognizer{texts: texts}
	win := fixedWindow{window.Rect{Width: 1456, Height: 800}}
	det := matcher.NewDetector(matcher.NewTemplate(""), 0.75)
	return New(c, vision.NewHashSkip(rec, -1), layout.Default(), win, det), c
}

func TestCookiesAndRate(t *testing.T) {
	r, c := newReader(func(string, image.Rectangle) image.Image { return flat(image.Rect(0, 0, 50, 20)) },
		"1.234 million biscotti", "al secondo: 374,961")

	v, err := r.Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1_234_000_000.0, v)

	v, err = r.Rate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 374.961, v, 1e-9)
	assert.Equal(t, []string{layout.RegionCookies, layout.RegionRate}, c.calls)
}

func TestShop(t *testing.T) {
	r, _ := newReader(func(_ string, rr image.Rectangle) image.Image { return flat(rr) },
		"Cursor 15 3", "Grandma 100", "")

	rows, err := r.Shop(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 10, "rows below the window edge are skipped")

	assert.Equal(t, "Cursor", rows[0].Name)
	assert.Equal(t, 15.0, rows[0].Cost.Value)
	assert.Equal(t, 3, rows[0].Count)
	assert.Equal(t, image.Pt((1160+1456)/2, 215), rows[0].ClickPos)

	assert.Equal(t, "Grandma", rows[1].Name)
	assert.Equal(t, 100.0, rows[1].Cost.Value)
	assert.Zero(t, rows[1].Count)

	assert.False(t, rows[2].Cost.Known)
	assert.Equal(t, 2, rows[2].Row)
}

func TestShopWithoutReadingsKeepsPrevious(t *testing.T) {
	r, _ := newReader(func(_ string, rr image.Rectangle) image.Image { return flat(rr) })
	rows, err := r.Shop(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestUpgrades(t *testing.T) {
	r, c := newReader(func(_ string, rr image.Rectangle) image.Image {
		if rr.Min.X < 1200 {
			return checker(rr)
		}
		return flat(rr)
	})

	ups, err := r.Upgrades(context.Background())
	require.NoError(t, err)
	require.Len(t, ups, 2)
	assert.Equal(t, 0, ups[0].Index)
	assert.Equal(t, image.Pt(1168, 112), ups[0].ClickPos)
	assert.Equal(t, image.Pt(1218, 112), ups[1].ClickPos)
	assert.Len(t, c.calls, 6, "slots past the window edge are not sampled")
}

func TestFindBonus(t *testing.T) {
	gold := color.RGBA{255, 200, 40, 255}
	r, _ := newReader(func(_ string, rr image.Rectangle) image.Image {
		img := image.NewRGBA(image.Rect(0, 0, rr.Dx(), rr.Dy()))
		for y := 50; y < 100; y++ {
			for x := 100; x < 150; x++ {
				img.Set(x, y, gold)
			}
		}
		return img
	})

	p, ok, err := r.FindBonus(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, image.Pt(124, 60+74), p)
}

func TestFindBonusNothing(t *testing.T) {
	r, _ := newReader(func(_ string, rr image.Rectangle) image.Image { return flat(rr) })
	_, ok, err := r.FindBonus(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		text  string
		cost  float64
		count int
	}{
		{"Cursor 15 3", 15, 3},
		{"Cursor 15", 15, 0},
		{"Farm 1.100 12", 1100, 12},
		{"Mine 5.1 million 7", 5_100_000, 7},
		{"", 0, 0},
		{"Temple", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cost, count := ParseRow(tt.text)
			assert.InDelta(t, tt.cost, cost, 1e-6)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestPriceLit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 10))
	for x := 0; x < 20; x++ {
		img.Set(x, 5, color.RGBA{60, 220, 60, 255})
	}
	assert.True(t, PriceLit(img))

	for x := 0; x < 40; x++ {
		img.Set(x, 6, color.RGBA{230, 40, 40, 255})
	}
	assert.False(t, PriceLit(img))
	assert.False(t, PriceLit(flat(image.Rect(0, 0, 10, 10))))
}
