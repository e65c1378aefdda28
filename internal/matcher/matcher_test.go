package matcher

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcaesar/imgo"
)

var (
	background = color.RGBA{40, 60, 90, 255}
	gold       = color.RGBA{255, 200, 40, 255}
)

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// target draws a bright ring with a dark centre so it has texture to correlate on.
func target(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill(img, img.Rect, color.RGBA{230, 230, 230, 255})
	q := size / 4
	fill(img, image.Rect(q, q, size-q, size-q), color.RGBA{20, 20, 20, 255})
	return img
}

func scene(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Rect, background)
	return img
}

func TestFindLocatesTemplate(t *testing.T) {
	tpl := target(40)
	s := scene(400, 300)
	at := image.Pt(220, 120)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			s.Set(at.X+x, at.Y+y, tpl.At(x, y))
		}
	}

	g := image.NewGray(tpl.Rect)
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			g.Set(x, y, tpl.At(x, y))
		}
	}

	m, ok := Find(s, g, 0.75)
	require.True(t, ok, "score %.2f", m.Score)
	assert.Equal(t, "template", m.Method)
	assert.InDelta(t, 240, m.Center.X, 4)
	assert.InDelta(t, 140, m.Center.Y, 4)
}

func TestFindRejectsFlatScene(t *testing.T) {
	tpl := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range tpl.Pix {
		tpl.Pix[i] = uint8(i % 251)
	}
	_, ok := Find(scene(200, 200), tpl, 0.75)
	assert.False(t, ok)
}

func TestFindNilTemplate(t *testing.T) {
	_, ok := Find(scene(100, 100), nil, 0.75)
	assert.False(t, ok)
}

func TestGoldBlobCentroid(t *testing.T) {
	s := scene(300, 200)
	fill(s, image.Rect(100, 50, 150, 100), gold) // 2500 px
	fill(s, image.Rect(10, 10, 20, 20), gold)    // small speck

	m, ok := GoldBlob(s, MinBlobArea)
	require.True(t, ok)
	assert.Equal(t, "color", m.Method)
	assert.Equal(t, image.Pt(124, 74), m.Center)
}

func TestGoldBlobTooSmall(t *testing.T) {
	s := scene(300, 200)
	fill(s, image.Rect(100, 50, 120, 70), gold) // 400 px
	_, ok := GoldBlob(s, MinBlobArea)
	assert.False(t, ok)
}

func TestGoldBlobHonoursBoundsOffset(t *testing.T) {
	s := scene(300, 200)
	fill(s, image.Rect(100, 50, 150, 100), gold)
	sub := s.SubImage(image.Rect(50, 25, 300, 200))

	m, ok := GoldBlob(sub, MinBlobArea)
	require.True(t, ok)
	assert.Equal(t, image.Pt(124, 74), m.Center)
}

func TestHSV(t *testing.T) {
	h, s, v := hsv(gold)
	assert.True(t, h >= GoldHueMin && h <= GoldHueMax, "hue %d", h)
	assert.GreaterOrEqual(t, s, GoldSatMin)
	assert.Equal(t, 255, v)

	_, s, _ = hsv(color.RGBA{128, 128, 128, 255})
	assert.Zero(t, s)
}

func TestDetectorFallsBackToColour(t *testing.T) {
	s := scene(300, 200)
	fill(s, image.Rect(100, 50, 150, 100), gold)

	d := NewDetector(NewTemplate(""), 0.75)
	m, ok := d.Locate(s)
	require.True(t, ok)
	assert.Equal(t, "color", m.Method)
}

func TestTemplateLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden.png")
	require.NoError(t, imgo.Save(path, target(30)))

	tpl := NewTemplate(path)
	require.NoError(t, tpl.Load())
	require.NotNil(t, tpl.Image())
	assert.Equal(t, 30, tpl.Image().Rect.Dx())
}

func TestTemplateLoadMissing(t *testing.T) {
	tpl := NewTemplate(filepath.Join(t.TempDir(), "absent.png"))
	assert.Error(t, tpl.Load())
	assert.Nil(t, tpl.Image())
}
