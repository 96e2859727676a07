package pipeline

import (
	"context"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/tensor"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

// FrameSource produces frames for the cycle. Next returns ErrSourceUnready
// while no frame is available. Callers release every frame they receive.
type FrameSource interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (*vision.Frame, error)
	Close() error
}

// Detector finds regions of interest in a grayscale frame. The returned
// order defines slot indices.
type Detector interface {
	Detect(ctx context.Context, gray *vision.Frame) ([]vision.Region, error)
}

// InferenceEngine maps an encoded tensor to raw class scores
type InferenceEngine interface {
	Run(ctx context.Context, t *tensor.Tensor) ([]float32, error)
}

// ResultSink receives results and session transitions. Implementations
// must return quickly; the frame cycle calls them inline.
type ResultSink interface {
	Publish(r Result)
	Transition(session string, running bool)
}

// Result is the outcome for one region in one cycle
type Result struct {
	Session       string        `json:"session"`
	Cycle         uint64        `json:"cycle"`
	Slot          int           `json:"slot"`
	Region        vision.Region `json:"region"`
	RawLabel      string        `json:"raw_label"`
	Confidence    float32       `json:"confidence"`
	SmoothedLabel string        `json:"smoothed_label"`
	Timestamp     time.Time     `json:"timestamp"`
}
