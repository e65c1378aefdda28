package matcher

import (
	"context"
	"image"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vcaesar/imgo"

	apperrors "github.com/GriffinCanCode/crumbot/internal/errors"
	"github.com/GriffinCanCode/crumbot/internal/screen"
)

const reloadDebounce = 100 * time.Millisecond

// Template holds the bonus reference image. It may be swapped at runtime
// when the file on disk changes.
type Template struct {
	path string
	img  atomic.Pointer[image.Gray]
}

// NewTemplate returns a template with no image loaded.
func NewTemplate(path string) *Template { return &Template{path: path} }

// Load reads the template from disk. A missing file leaves the previous image in place.
func (t *Template) Load() error {
	if t.path == "" {
		return apperrors.New(apperrors.TemplateMissing, "no template path configured")
	}
	img, err := imgo.Read(t.path)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.TemplateMissing, "read template %s", t.path)
	}
	t.Set(img)
	return nil
}

// Set replaces the template image.
func (t *Template) Set(img image.Image) {
	if img == nil {
		t.img.Store(nil)
		return
	}
	t.img.Store(screen.Grayscale(img))
}

// Image returns the loaded template, or nil.
func (t *Template) Image() *image.Gray { return t.img.Load() }

// Watch reloads the template whenever its file is written or recreated,
// until ctx is done.
func (t *Template) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(t.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return apperrors.Wrapf(err, apperrors.TemplateMissing, "watch %s", dir)
	}
	target := filepath.Clean(t.path)

	go func() {
		defer fw.Close()
		var last time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if time.Since(last) < reloadDebounce {
					continue
				}
				last = time.Now()
				if err := t.Load(); err != nil {
					slog.Warn("template reload failed", "path", t.path, "error", err)
					continue
				}
				slog.Info("template reloaded", "path", t.path)
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Detector finds the bonus with the template first and the colour blob second.
type Detector struct {
	tpl        *Template
	confidence float64
	minArea    int
}

// NewDetector builds a detector. tpl may hold no image, in which case only
// colour detection runs.
func NewDetector(tpl *Template, confidence float64) *Detector {
	return &Detector{tpl: tpl, confidence: confidence, minArea: MinBlobArea}
}

// Locate returns the bonus centre in scene coordinates.
func (d *Detector) Locate(scene image.Image) (Match, bool) {
	if d.tpl != nil {
		if m, ok := Find(scene, d.tpl.Image(), d.confidence); ok {
			return m, true
		}
	}
	return GoldBlob(scene, d.minArea)
}
