// Package opencv adapts gocv to the pipeline collaborator interfaces:
// webcam capture, Haar cascade face detection and ONNX classification.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

// CameraSource reads frames from a local video device. Pixel buffers are
// pooled and come back through the frame release hook.
type CameraSource struct {
	deviceID int
	width    int
	height   int
	logger   *logger.Logger

	mu   sync.Mutex
	cap  *gocv.VideoCapture
	raw  gocv.Mat
	rgba gocv.Mat
	pool sync.Pool
}

// NewCameraSource creates a source for the given device. Zero width or
// height keeps the device default.
func NewCameraSource(deviceID, width, height int, log *logger.Logger) *CameraSource {
	return &CameraSource{
		deviceID: deviceID,
		width:    width,
		height:   height,
		logger:   log.Named("camera"),
	}
}

// Open acquires the device
func (s *CameraSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return fmt.Errorf("failed to open video device %d: %w", s.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("video device %d is not available", s.deviceID)
	}
	if s.width > 0 && s.height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(s.width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(s.height))
	}

	s.cap = capture
	s.raw = gocv.NewMat()
	s.rgba = gocv.NewMat()
	s.logger.Info("Camera opened", "device", s.deviceID)
	return nil
}

// Next grabs one frame and converts it from BGR to RGBA. An empty read
// (device warming up, dropped frame) reports ErrSourceUnready.
func (s *CameraSource) Next(ctx context.Context) (*vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil, pipeline.ErrSourceUnready
	}
	if ok := s.cap.Read(&s.raw); !ok || s.raw.Empty() {
		return nil, pipeline.ErrSourceUnready
	}

	gocv.CvtColor(s.raw, &s.rgba, gocv.ColorBGRToRGBA)
	width, height := s.rgba.Cols(), s.rgba.Rows()
	size := width * height * 4

	data := s.rgba.ToBytes()
	if len(data) < size {
		return nil, fmt.Errorf("camera returned %d bytes for a %dx%d frame", len(data), width, height)
	}

	buf := s.buffer(size)
	copy(buf, data[:size])

	return vision.NewFrame(width, height, vision.FormatRGBA, buf, func() {
		s.pool.Put(&buf)
	})
}

func (s *CameraSource) buffer(size int) []byte {
	if p, ok := s.pool.Get().(*[]byte); ok && cap(*p) >= size {
		return (*p)[:size]
	}
	return make([]byte, size)
}

// Close releases the device
func (s *CameraSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.raw.Close()
	s.rgba.Close()
	s.cap = nil
	s.logger.Info("Camera closed", "device", s.deviceID)
	return err
}

var errNotLoaded = errors.New("model not loaded")
