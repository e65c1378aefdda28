// Package tesseract recognises text with a local tesseract install.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/vision"
)

const digitsWhitelist = "0123456789.,: abcdefghijklmnopqrstuvwxyz"

// Tesseract is a vision.Recognizer. A client is not safe for concurrent use,
// so calls are serialised.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract probes the local engine and returns a ready recogniser.
func New(lang string) (*Tesseract, error) {
	if lang == "" {
		lang = "eng"
	}
	c := gosseract.NewClient()
	if err := c.SetLanguage(lang); err != nil {
		c.Close()
		return nil, apperrors.Wrap(err, apperrors.OCRUnavailable, "tesseract language")
	}
	// An empty probe image surfaces a missing engine or language data now
	// rather than on the first read.
	probe := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	_ = png.Encode(&buf, probe)
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		c.Close()
		return nil, apperrors.Wrap(err, apperrors.OCRUnavailable, "tesseract probe")
	}
	if _, err := c.Text(); err != nil {
		c.Close()
		return nil, apperrors.Wrap(err, apperrors.OCRUnavailable, "tesseract probe")
	}
	return &Tesseract{client: c}, nil
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image, mode vision.Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRFailed, "encode png")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	psm := gosseract.PSM_SINGLE_LINE
	whitelist := digitsWhitelist
	if mode == vision.Block {
		psm = gosseract.PSM_SINGLE_BLOCK
		whitelist = ""
	}
	if err := t.client.SetPageSegMode(psm); err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRFailed, "page seg mode")
	}
	if err := t.client.SetWhitelist(whitelist); err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRFailed, "whitelist")
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRFailed, "set image")
	}
	text, err := t.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRFailed, "tesseract")
	}
	return strings.TrimSpace(text), nil
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
