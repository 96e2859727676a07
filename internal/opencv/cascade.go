package opencv

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

// CascadeDetector finds faces with a Haar cascade
type CascadeDetector struct {
	scaleFactor  float64
	minNeighbors int
	minSize      image.Point

	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	loaded     bool
}

// NewCascadeDetector loads the cascade XML at path
func NewCascadeDetector(path string, scaleFactor float64, minNeighbors, minSize int) (*CascadeDetector, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade: %s", path)
	}

	return &CascadeDetector{
		scaleFactor:  scaleFactor,
		minNeighbors: minNeighbors,
		minSize:      image.Pt(minSize, minSize),
		classifier:   classifier,
		loaded:       true,
	}, nil
}

// Detect returns face rectangles in classifier order
func (d *CascadeDetector) Detect(ctx context.Context, gray *vision.Frame) ([]vision.Region, error) {
	if gray.Format != vision.FormatGray {
		return nil, fmt.Errorf("cascade detector needs a gray frame, got %s", gray.Format)
	}

	mat, err := gocv.NewMatFromBytes(gray.Height, gray.Width, gocv.MatTypeCV8UC1, gray.Pix[:gray.Height*gray.Stride])
	if err != nil {
		return nil, fmt.Errorf("failed to wrap gray frame: %w", err)
	}
	defer mat.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil, errNotLoaded
	}

	rects := d.classifier.DetectMultiScaleWithParams(mat, d.scaleFactor, d.minNeighbors, 0, d.minSize, image.Point{})
	regions := make([]vision.Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, vision.FromRect(r))
	}
	return regions, nil
}

// Close frees the classifier
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil
	}
	d.loaded = false
	return d.classifier.Close()
}
