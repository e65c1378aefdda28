// Package vision recognises text in captured regions. The backend is chosen
// once at startup; when none is available every read degrades to "".
package vision

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/grpcclient"
)

// Mode tells the backend what layout of text to expect.
type Mode int

const (
	Line  Mode = iota // a single line: counters, shop rows
	Block             // a block of lines: tooltips
)

func (m Mode) String() string {
	if m == Block {
		return "block"
	}
	return "line"
}

// Recognizer extracts text from an already preprocessed image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, mode Mode) (string, error)
	Name() string
	Close() error
}

// Noop is the degraded backend used when no recogniser is available.
type Noop struct{}

func (Noop) Recognize(context.Context, image.Image, Mode) (string, error) { return "", nil }
func (Noop) Name() string                                                 { return "none" }
func (Noop) Close() error                                                 { return nil }

// Remote recognises text through the gRPC OCR service.
type Remote struct {
	client *grpcclient.Client
}

// NewRemote wraps a connected client.
func NewRemote(c *grpcclient.Client) *Remote { return &Remote{client: c} }

func (r *Remote) Recognize(ctx context.Context, img image.Image, _ Mode) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", apperrors.Wrap(err, apperrors.OCRFailed, "encode png")
	}
	text, err := r.client.ExtractText(ctx, buf.Bytes())
	return strings.TrimSpace(text), err
}

func (r *Remote) Name() string { return "remote" }
func (r *Remote) Close() error { return r.client.Close() }

// Client returns the underlying gRPC client.
func (r *Remote) Client() *grpcclient.Client { return r.client }
