package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/model"
	"github.com/Futsu-coder/Emotion-Detection/internal/service"
	"github.com/Futsu-coder/Emotion-Detection/internal/smoothing"
	"github.com/Futsu-coder/Emotion-Detection/internal/tensor"
	"github.com/google/uuid"
)

// ServiceName is the name the controller registers under
const ServiceName = "pipeline"

// ControllerConfig configures a Controller
type ControllerConfig struct {
	Cycle           CycleConfig
	TensorSize      int
	SmoothingWindow int
}

// Controller owns the pipeline lifecycle. At most one worker runs at a
// time; Start and Stop are serialized.
type Controller struct {
	*service.ServiceBase

	source   FrameSource
	cycle    *FrameCycle
	smoother *smoothing.SlotSmoother
	board    *Board
	sinks    *Fanout

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	sessionMu sync.RWMutex
	session   string
}

// NewController wires a controller and its frame cycle
func NewController(cfg ControllerConfig, source FrameSource, detector Detector, engine InferenceEngine, labels *model.LabelTable, board *Board, log *logger.Logger) (*Controller, error) {
	codec, err := tensor.NewCodec(cfg.TensorSize)
	if err != nil {
		return nil, err
	}
	if board == nil {
		board = NewBoard(0)
	}

	c := &Controller{
		ServiceBase: service.NewServiceBase(ServiceName, log),
		source:      source,
		smoother:    smoothing.New(cfg.SmoothingWindow),
		board:       board,
		sinks:       &Fanout{},
	}
	c.sinks.Add(board)

	c.cycle, err = NewFrameCycle(CycleDeps{
		Source:   source,
		Detector: detector,
		Engine:   engine,
		Codec:    codec,
		Labels:   labels,
		Smoother: c.smoother,
		Sink:     c.sinks,
		Running:  c.Running,
	}, cfg.Cycle, log)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddSink registers an additional result sink. Call before Start.
func (c *Controller) AddSink(s ResultSink) {
	c.sinks.Add(s)
}

// Start opens the frame source, resets smoothing and launches the worker.
// The worker outlives ctx; only Stop ends it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return ErrAlreadyRunning
	}
	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
			return fmt.Errorf("previous frame cycle still draining: %w", ctx.Err())
		}
	}

	c.GetStatus().SetStatus(service.StatusStarting)
	if err := c.source.Open(ctx); err != nil {
		c.GetStatus().SetError(err)
		return fmt.Errorf("failed to open frame source: %w", err)
	}

	c.smoother.Reset()
	session := uuid.New().String()
	c.setSession(session)
	c.cycle.begin(session)

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.running.Store(true)

	c.sinks.Transition(session, true)
	c.PublishEvent(service.EventTypePipelineStarted, map[string]interface{}{
		"session": session,
	})
	c.GetStatus().SetStatus(service.StatusRunning)
	c.LogInfo("Pipeline started", "session", session)

	go func() {
		defer close(done)
		c.cycle.Run(workerCtx)
	}()
	return nil
}

// Stop halts the worker, waits for the in-flight cycle (bounded by ctx)
// and releases the frame source. Stopping a stopped pipeline is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Swap(false) {
		return nil
	}
	c.GetStatus().SetStatus(service.StatusStopping)
	c.cancel()

	var waitErr error
	select {
	case <-c.done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("waiting for frame cycle: %w", ctx.Err())
		c.LogWarn("Frame cycle did not finish before stop deadline")
	}

	if err := c.source.Close(); err != nil {
		c.LogError("Failed to close frame source", err)
	}

	session := c.setSession("")
	c.sinks.Transition(session, false)
	c.PublishEvent(service.EventTypePipelineStopped, map[string]interface{}{
		"session": session,
	})
	c.GetStatus().SetStatus(service.StatusStopped)
	c.LogInfo("Pipeline stopped", "session", session)

	return waitErr
}

// Running reports whether a session is active
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Session returns the active session ID
func (c *Controller) Session() (string, error) {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	if c.session == "" {
		return "", ErrNotRunning
	}
	return c.session, nil
}

// setSession swaps the session ID and returns the previous one
func (c *Controller) setSession(id string) string {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	prev := c.session
	c.session = id
	return prev
}

// Board returns the headline board
func (c *Controller) Board() *Board {
	return c.board
}

// Stats returns the frame cycle counters
func (c *Controller) Stats() Stats {
	return c.cycle.Stats()
}

// Windows returns the smoothing history of every slot
func (c *Controller) Windows() map[int][]string {
	return c.smoother.Windows()
}

// Lifecycle adapts a Controller to the service manager. The pipeline only
// starts with the application when Autostart is set; otherwise it waits for
// an explicit start request.
type Lifecycle struct {
	*Controller
	Autostart bool
}

// Start implements service.Service
func (l *Lifecycle) Start(ctx context.Context) error {
	if !l.Autostart {
		l.LogInfo("Pipeline idle until started")
		return nil
	}
	if err := l.Controller.Start(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		return err
	}
	return nil
}
