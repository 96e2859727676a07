// Package capture provides frame sources that do not need a camera.
package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

// StillSource serves the same decoded image on every Next. It is used for
// offline runs and smoke tests on machines without a webcam.
type StillSource struct {
	path string

	mu    sync.RWMutex
	frame *vision.Frame
}

// NewStillSource creates a source for the image at path
func NewStillSource(path string) *StillSource {
	return &StillSource{path: path}
}

// Open decodes the image
func (s *StillSource) Open(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", s.path, err)
	}
	if img.Bounds().Empty() {
		return fmt.Errorf("image %s (%s) is empty", s.path, format)
	}

	s.mu.Lock()
	s.frame = vision.FromImage(img)
	s.mu.Unlock()
	return nil
}

// Next returns a view of the decoded image. Frames share pixels and are
// never modified, so releasing them is a no-op.
func (s *StillSource) Next(ctx context.Context) (*vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return nil, pipeline.ErrSourceUnready
	}
	return &vision.Frame{
		Width:  s.frame.Width,
		Height: s.frame.Height,
		Stride: s.frame.Stride,
		Format: s.frame.Format,
		Pix:    s.frame.Pix,
	}, nil
}

// Close drops the decoded image
func (s *StillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = nil
	return nil
}
