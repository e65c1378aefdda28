package vision

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"
)

type seen struct {
	hash *goimagehash.ImageHash
	text string
}

// HashSkip reuses the previous result for a region when its perceptual hash
// has not moved more than MaxDistance bits since the last recognised frame.
type HashSkip struct {
	rec         Recognizer
	maxDistance int

	mu   sync.Mutex
	last map[string]seen
	hits int
}

// NewHashSkip wraps rec. A negative maxDistance disables skipping.
func NewHashSkip(rec Recognizer, maxDistance int) *HashSkip {
	return &HashSkip{rec: rec, maxDistance: maxDistance, last: make(map[string]seen)}
}

// Read recognises img for the region key, or returns the cached text.
func (h *HashSkip) Read(ctx context.Context, key string, img image.Image, mode Mode) (string, error) {
	if h.maxDistance < 0 {
		return h.rec.Recognize(ctx, img, mode)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return h.rec.Recognize(ctx, img, mode)
	}

	h.mu.Lock()
	prev, ok := h.last[key]
	h.mu.Unlock()
	if ok {
		if dist, err := prev.hash.Distance(hash); err == nil && dist <= h.maxDistance {
			slog.Debug("skipping ocr for unchanged region", "region", key, "distance", dist)
			h.mu.Lock()
			h.hits++
			h.mu.Unlock()
			return prev.text, nil
		}
	}

	text, err := h.rec.Recognize(ctx, img, mode)
	if err != nil {
		return "", err
	}
	h.mu.Lock()
	h.last[key] = seen{hash: hash, text: text}
	h.mu.Unlock()
	return text, nil
}

// Forget drops the cached result for key.
func (h *HashSkip) Forget(key string) {
	h.mu.Lock()
	delete(h.last, key)
	h.mu.Unlock()
}

// Hits reports how many reads were served from cache.
func (h *HashSkip) Hits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits
}

// Recognizer returns the wrapped backend.
func (h *HashSkip) Recognizer() Recognizer { return h.rec }
