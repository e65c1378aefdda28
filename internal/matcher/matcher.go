// Package matcher locates the golden bonus on a captured frame, first by
// template correlation and then by a colour blob fallback.
package matcher

import (
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/GriffinCanCode/crumbot/internal/screen"
)

// MinTemplateSide is the smallest template edge, in pixels, kept after
// downsampling. Smaller templates correlate against noise.
const MinTemplateSide = 12

// MaxSceneSide bounds the longest scene edge searched.
const MaxSceneSide = 320

// Match is a located target in scene coordinates.
type Match struct {
	Center image.Point
	Score  float64
	Method string // "template" or "color"
}

// Find slides tpl over scene and returns the centre of the best normalised
// cross-correlation score when it reaches minScore.
func Find(scene image.Image, tpl *image.Gray, minScore float64) (Match, bool) {
	if tpl == nil {
		return Match{}, false
	}
	sb, tb := scene.Bounds(), tpl.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 || tb.Dx() > sb.Dx() || tb.Dy() > sb.Dy() {
		return Match{}, false
	}

	f := factor(sb, tb)
	s := downsample(screen.Grayscale(scene), f)
	t := downsample(screen.Grayscale(tpl), f)
	tw, th := t.Rect.Dx(), t.Rect.Dy()
	sw, sh := s.Rect.Dx(), s.Rect.Dy()
	if tw == 0 || th == 0 || tw > sw || th > sh {
		return Match{}, false
	}

	tmean, tnorm := stats(t.Pix, t.Stride, 0, 0, tw, th)
	if tnorm == 0 {
		return Match{}, false
	}

	best, bx, by := -1.0, 0, 0
	for y := 0; y+th <= sh; y++ {
		for x := 0; x+tw <= sw; x++ {
			smean, snorm := stats(s.Pix, s.Stride, x, y, tw, th)
			if snorm == 0 {
				continue
			}
			var cross float64
			for j := 0; j < th; j++ {
				srow := s.Pix[(y+j)*s.Stride+x:]
				trow := t.Pix[j*t.Stride:]
				for i := 0; i < tw; i++ {
					cross += (float64(srow[i]) - smean) * (float64(trow[i]) - tmean)
				}
			}
			if score := cross / (snorm * tnorm); score > best {
				best, bx, by = score, x, y
			}
		}
	}
	if best < minScore {
		return Match{Score: best}, false
	}
	cx := int(float64(bx)*f+float64(tb.Dx())/2) + sb.Min.X
	cy := int(float64(by)*f+float64(tb.Dy())/2) + sb.Min.Y
	return Match{Center: image.Pt(cx, cy), Score: best, Method: "template"}, true
}

// factor picks the shrink ratio keeping the template at least MinTemplateSide.
func factor(scene, tpl image.Rectangle) float64 {
	f := math.Max(float64(scene.Dx()), float64(scene.Dy())) / MaxSceneSide
	limit := math.Min(float64(tpl.Dx()), float64(tpl.Dy())) / MinTemplateSide
	f = math.Min(f, limit)
	return math.Max(f, 1)
}

func downsample(g *image.Gray, f float64) *image.Gray {
	if f <= 1 {
		return g
	}
	w := uint(math.Max(1, math.Round(float64(g.Rect.Dx())/f)))
	h := uint(math.Max(1, math.Round(float64(g.Rect.Dy())/f)))
	return screen.Grayscale(resize.Resize(w, h, g, resize.Bilinear))
}

// stats returns the mean and the root of the summed squared deviation of a window.
func stats(pix []uint8, stride, x, y, w, h int) (mean, norm float64) {
	var sum float64
	for j := 0; j < h; j++ {
		row := pix[(y+j)*stride+x:]
		for i := 0; i < w; i++ {
			sum += float64(row[i])
		}
	}
	mean = sum / float64(w*h)
	var sq float64
	for j := 0; j < h; j++ {
		row := pix[(y+j)*stride+x:]
		for i := 0; i < w; i++ {
			d := float64(row[i]) - mean
			sq += d * d
		}
	}
	return mean, math.Sqrt(sq)
}
