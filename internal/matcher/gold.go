package matcher

import (
	"image"
	"image/color"
)

// HSV bounds for golden pixels on an OpenCV-style scale (H 0-179, S and V 0-255).
const (
	GoldHueMin = 15
	GoldHueMax = 35
	GoldSatMin = 150
	GoldValMin = 150

	// MinBlobArea is the smallest golden region, in pixels, taken as a bonus.
	MinBlobArea = 1000
)

// GoldBlob returns the centroid of the largest connected golden region.
func GoldBlob(scene image.Image, minArea int) (Match, bool) {
	b := scene.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Match{}, false
	}

	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y*w+x] = isGold(scene.At(b.Min.X+x, b.Min.Y+y))
		}
	}

	seen := make([]bool, w*h)
	stack := make([]int, 0, 256)
	bestArea, bestX, bestY := 0, 0, 0
	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		area, sx, sy := 0, 0, 0
		stack = append(stack[:0], start)
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			area++
			sx += x
			sy += y
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				if n[0] < 0 || n[1] < 0 || n[0] >= w || n[1] >= h {
					continue
				}
				j := n[1]*w + n[0]
				if mask[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		if area > bestArea {
			bestArea, bestX, bestY = area, sx, sy
		}
	}
	if bestArea < minArea || bestArea == 0 {
		return Match{}, false
	}
	c := image.Pt(b.Min.X+bestX/bestArea, b.Min.Y+bestY/bestArea)
	return Match{Center: c, Score: float64(bestArea), Method: "color"}, true
}

func isGold(c color.Color) bool {
	h, s, v := hsv(c)
	return h >= GoldHueMin && h <= GoldHueMax && s >= GoldSatMin && v >= GoldValMin
}

// hsv converts c to hue in [0,180) and saturation, value in [0,255].
func hsv(c color.Color) (h, s, v int) {
	r32, g32, b32, _ := c.RGBA()
	r, g, b := int(r32>>8), int(g32>>8), int(b32>>8)
	maxc := max(r, g, b)
	minc := min(r, g, b)
	v = maxc
	if maxc == 0 {
		return 0, 0, 0
	}
	delta := maxc - minc
	s = delta * 255 / maxc
	if delta == 0 {
		return 0, s, v
	}
	var deg float64
	switch maxc {
	case r:
		deg = 60 * float64(g-b) / float64(delta)
	case g:
		deg = 120 + 60*float64(b-r)/float64(delta)
	default:
		deg = 240 + 60*float64(r-g)/float64(delta)
	}
	if deg < 0 {
		deg += 360
	}
	return int(deg / 2), s, v
}
