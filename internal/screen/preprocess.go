package screen

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
)

// Prep describes a preprocessing pipeline run before text recognition.
type Prep struct {
	Scale      uint    // upscale factor, 0 or 1 disables
	InvertDark bool    // invert when the mean luminance is below mid-grey
	Contrast   float64 // contrast factor around mid-grey, 0 or 1 disables
	Threshold  uint8   // binarisation cut, 0 disables
}

// LinePrep suits single lines of light text: counter and rate labels, shop rows.
var LinePrep = Prep{Scale: 2, Contrast: 2.5, Threshold: 128}

// TooltipPrep suits the multi-line tooltip box with light text on a dark panel.
var TooltipPrep = Prep{Scale: 2, InvertDark: true, Contrast: 2.5, Threshold: 90}

// Apply runs the pipeline and returns a grayscale image.
func (p Prep) Apply(img image.Image) *image.Gray {
	if p.Scale > 1 {
		img = Upscale(img, p.Scale)
	}
	g := Grayscale(img)
	if p.InvertDark && MeanLuma(g) < 128 {
		Invert(g)
	}
	if p.Contrast > 0 && p.Contrast != 1 {
		Contrast(g, p.Contrast)
	}
	if p.Threshold > 0 {
		Threshold(g, p.Threshold)
	}
	return g
}

// Upscale enlarges img by factor with Lanczos resampling.
func Upscale(img image.Image, factor uint) image.Image {
	b := img.Bounds()
	return resize.Resize(uint(b.Dx())*factor, uint(b.Dy())*factor, img, resize.Lanczos3)
}

// Grayscale converts img to an 8-bit gray image anchored at the origin.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return g
}

// MeanLuma returns the mean pixel value of g.
func MeanLuma(g *image.Gray) float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum int
	for _, v := range g.Pix {
		sum += int(v)
	}
	return float64(sum) / float64(len(g.Pix))
}

// Invert flips every pixel of g in place.
func Invert(g *image.Gray) {
	for i, v := range g.Pix {
		g.Pix[i] = 255 - v
	}
}

// Contrast scales pixel distance from mid-grey by factor in place.
func Contrast(g *image.Gray, factor float64) {
	for i, v := range g.Pix {
		c := (float64(v)-128)*factor + 128
		g.Pix[i] = uint8(math.Max(0, math.Min(255, math.Round(c))))
	}
}

// Threshold maps pixels below cut to black and the rest to white, in place.
func Threshold(g *image.Gray, cut uint8) {
	for i, v := range g.Pix {
		if v < cut {
			g.Pix[i] = 0
		} else {
			g.Pix[i] = 255
		}
	}
}

// Variance returns the luminance variance of img, used to tell an occupied
// icon slot from flat background.
func Variance(img image.Image) float64 {
	g := Grayscale(img)
	if len(g.Pix) == 0 {
		return 0
	}
	mean := MeanLuma(g)
	var acc float64
	for _, v := range g.Pix {
		d := float64(v) - mean
		acc += d * d
	}
	return acc / float64(len(g.Pix))
}

// DarkBand finds the tallest run of rows in img whose mean luminance is below
// cut, returning its vertical extent relative to img's bounds. ok is false
// when no run is at least minHeight rows tall.
func DarkBand(img image.Image, cut float64, minHeight int) (top, bottom int, ok bool) {
	g := Grayscale(img)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 {
		return 0, 0, false
	}

	bestTop, bestLen := 0, 0
	runTop, runLen := 0, 0
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		var sum int
		for _, v := range row {
			sum += int(v)
		}
		if float64(sum)/float64(w) < cut {
			if runLen == 0 {
				runTop = y
			}
			runLen++
			if runLen > bestLen {
				bestTop, bestLen = runTop, runLen
			}
		} else {
			runLen = 0
		}
	}
	if bestLen < minHeight {
		return 0, 0, false
	}
	return bestTop, bestTop + bestLen, true
}
