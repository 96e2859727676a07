package opencv

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Futsu-coder/Emotion-Detection/internal/tensor"
)

// ONNXEngine runs the emotion classifier through the OpenCV DNN module.
// gocv.Net is not safe for concurrent use, so calls are serialized.
type ONNXEngine struct {
	mu     sync.Mutex
	net    gocv.Net
	loaded bool
}

// NewONNXEngine loads the model at path with the given backend and target
// names ("default", "openvino", "cuda"... and "cpu", "fp16", "cuda"...).
func NewONNXEngine(path, backend, target string) (*ONNXEngine, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", path)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network: %s", path)
	}
	net.SetPreferableBackend(gocv.ParseNetBackend(backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(target))

	return &ONNXEngine{net: net, loaded: true}, nil
}

// Run feeds t as a [1, C, H, W] blob and returns the first output's scores
func (e *ONNXEngine) Run(ctx context.Context, t *tensor.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob := gocv.NewMatWithSizes([]int{1, t.Shape[0], t.Shape[1], t.Shape[2]}, gocv.MatTypeCV32F)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to access input blob: %w", err)
	}
	if len(data) != len(t.Data) {
		return nil, fmt.Errorf("input blob holds %d values, tensor has %d", len(data), len(t.Data))
	}
	copy(data, t.Data)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil, errNotLoaded
	}

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, fmt.Errorf("network produced no output")
	}

	scores, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	return append([]float32(nil), scores...), nil
}

// Close frees the network
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil
	}
	e.loaded = false
	return e.net.Close()
}
