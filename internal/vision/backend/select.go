// Package backend picks the text recogniser once at startup.
package backend

import (
	"context"
	"log/slog"

	"github.com/GriffinCanCode/crumbot/internal/config"
	"github.com/GriffinCanCode/crumbot/internal/grpcclient"
	"github.com/GriffinCanCode/crumbot/internal/vision"
	"github.com/GriffinCanCode/crumbot/internal/vision/tesseract"
)

// Select builds the recogniser named by cfg. "auto" prefers a healthy remote
// service, then local tesseract, then the no-op backend.
func Select(ctx context.Context, cfg config.VisionConfig) (vision.Recognizer, error) {
	switch cfg.Backend {
	case "none":
		return vision.Noop{}, nil
	case "tesseract":
		return tesseract.New(cfg.Language)
	case "remote":
		c, err := grpcclient.New(cfg.RemoteAddr, cfg.RemoteTimeout.Duration)
		if err != nil {
			return nil, err
		}
		return vision.NewRemote(c), nil
	}

	if cfg.RemoteAddr != "" {
		c, err := grpcclient.New(cfg.RemoteAddr, cfg.RemoteTimeout.Duration)
		if err == nil {
			if c.Healthy(ctx) {
				return vision.NewRemote(c), nil
			}
			_ = c.Close()
		}
		slog.Info("remote ocr not reachable, trying tesseract", "addr", cfg.RemoteAddr)
	}

	t, err := tesseract.New(cfg.Language)
	if err != nil {
		slog.Warn("text recognition unavailable, reads will return zero", "error", err)
		return vision.Noop{}, nil
	}
	return t, nil
}
