package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/model"
	"github.com/Futsu-coder/Emotion-Detection/internal/smoothing"
	"github.com/Futsu-coder/Emotion-Detection/internal/tensor"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

// State is the frame cycle position
type State int32

const (
	StateIdle State = iota
	StateDetectingRegions
	StateProcessingRegions
	StateScheduled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetectingRegions:
		return "detecting_regions"
	case StateProcessingRegions:
		return "processing_regions"
	case StateScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// TickOutcome reports what a single tick did
type TickOutcome int

const (
	OutcomeProcessed TickOutcome = iota + 1
	OutcomeSkippedUnready
	OutcomeStopped
)

func (o TickOutcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeSkippedUnready:
		return "skipped_unready"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CycleConfig tunes a FrameCycle
type CycleConfig struct {
	MaxRegions       int
	FrameInterval    time.Duration
	InferenceTimeout time.Duration // 0 means no per-region deadline
}

// CycleDeps are the collaborators of a FrameCycle
type CycleDeps struct {
	Source   FrameSource
	Detector Detector
	Engine   InferenceEngine
	Codec    *tensor.Codec
	Labels   *model.LabelTable
	Smoother *smoothing.SlotSmoother
	Sink     ResultSink
	// Running reports whether the owning controller still wants frames
	Running func() bool
}

// FrameCycle runs detection and classification for one frame per tick.
// Ticks never overlap; the state word doubles as the single-flight guard.
type FrameCycle struct {
	deps   CycleDeps
	cfg    CycleConfig
	logger *logger.Logger
	pacer  *Pacer
	now    func() time.Time

	state   atomic.Int32
	seq     atomic.Uint64
	session string
	stats   counters
}

// NewFrameCycle creates a frame cycle
func NewFrameCycle(deps CycleDeps, cfg CycleConfig, log *logger.Logger) (*FrameCycle, error) {
	if deps.Source == nil || deps.Detector == nil || deps.Engine == nil {
		return nil, errors.New("frame cycle requires a source, detector and engine")
	}
	if deps.Codec == nil || deps.Labels == nil || deps.Smoother == nil {
		return nil, errors.New("frame cycle requires a codec, label table and smoother")
	}
	if deps.Running == nil {
		return nil, errors.New("frame cycle requires a running probe")
	}
	if deps.Sink == nil {
		deps.Sink = &Fanout{}
	}
	if cfg.MaxRegions <= 0 {
		cfg.MaxRegions = 3
	}

	return &FrameCycle{
		deps:   deps,
		cfg:    cfg,
		logger: log.Named("cycle"),
		pacer:  NewPacer(cfg.FrameInterval),
		now:    time.Now,
	}, nil
}

// State returns the current state
func (c *FrameCycle) State() State {
	return State(c.state.Load())
}

// Stats returns a snapshot of the cycle counters
func (c *FrameCycle) Stats() Stats {
	return c.stats.snapshot(c.State())
}

// begin prepares the cycle for a new session. Must not race with Tick.
func (c *FrameCycle) begin(session string) {
	c.session = session
	c.seq.Store(0)
	c.state.Store(int32(StateIdle))
}

func (c *FrameCycle) enter() bool {
	return c.state.CompareAndSwap(int32(StateScheduled), int32(StateDetectingRegions)) ||
		c.state.CompareAndSwap(int32(StateIdle), int32(StateDetectingRegions))
}

func (c *FrameCycle) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || !c.deps.Running()
}

// finish moves to Scheduled while running, Idle otherwise
func (c *FrameCycle) finish(ctx context.Context, outcome TickOutcome) TickOutcome {
	if c.stopped(ctx) {
		c.state.Store(int32(StateIdle))
		return OutcomeStopped
	}
	c.state.Store(int32(StateScheduled))
	return outcome
}

// Tick runs exactly one iteration: acquire, detect, classify each region
// up to MaxRegions, emit. Per-region failures are counted and skipped.
func (c *FrameCycle) Tick(ctx context.Context) (TickOutcome, error) {
	if !c.enter() {
		return 0, ErrCycleInFlight
	}
	if c.stopped(ctx) {
		c.state.Store(int32(StateIdle))
		return OutcomeStopped, nil
	}

	start := time.Now()
	defer func() {
		c.stats.lastCycle.Store(int64(time.Since(start)))
	}()
	c.stats.cycles.Add(1)
	seq := c.seq.Add(1)

	frame, err := c.acquire(ctx)
	if frame != nil {
		defer frame.Release()
	}
	if err != nil || !frame.Ready() {
		if err != nil && !errors.Is(err, ErrSourceUnready) {
			c.stats.sourceFailures.Add(1)
			c.logger.Debug("Frame acquisition failed", "error", err)
		} else {
			c.stats.unready.Add(1)
		}
		return c.finish(ctx, OutcomeSkippedUnready), nil
	}

	gray := frame.Gray()
	defer gray.Release()

	regions := c.detect(ctx, gray)

	c.state.Store(int32(StateProcessingRegions))
	n := len(regions)
	if n > c.cfg.MaxRegions {
		n = c.cfg.MaxRegions
	}

	for slot := 0; slot < n; slot++ {
		res, err := c.processRegion(ctx, frame, slot, regions[slot])
		if err == nil && c.stopped(ctx) {
			err = errDiscarded
		}
		if err != nil {
			if errors.Is(err, errDiscarded) || c.stopped(ctx) {
				c.stats.discarded.Add(1)
				c.state.Store(int32(StateIdle))
				return OutcomeStopped, nil
			}
			c.recordRegionFailure(slot, regions[slot], err)
			continue
		}

		res.Session = c.session
		res.Cycle = seq
		c.deps.Sink.Publish(res)
		c.stats.results.Add(1)
	}

	return c.finish(ctx, OutcomeProcessed), nil
}

// Run ticks until ctx is cancelled or a tick reports the pipeline stopped
func (c *FrameCycle) Run(ctx context.Context) {
	c.logger.Debug("Frame cycle worker started", "session", c.session)
	defer c.logger.Debug("Frame cycle worker exited", "session", c.session)

	for {
		start := time.Now()
		outcome, err := c.Tick(ctx)
		if err != nil {
			c.logger.Warn("Tick rejected", "error", err)
		}
		if outcome == OutcomeStopped {
			return
		}
		if err := c.pacer.Wait(ctx, time.Since(start)); err != nil {
			c.state.CompareAndSwap(int32(StateScheduled), int32(StateIdle))
			return
		}
	}
}

func (c *FrameCycle) acquire(ctx context.Context) (frame *vision.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame source panic: %v", r)
		}
	}()
	return c.deps.Source.Next(ctx)
}

// detect treats a detector error or panic as an empty frame
func (c *FrameCycle) detect(ctx context.Context, gray *vision.Frame) (regions []vision.Region) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.detectorFailures.Add(1)
			c.logger.Debug("Detector panic", "panic", fmt.Sprint(r))
			regions = nil
		}
	}()

	regions, err := c.deps.Detector.Detect(ctx, gray)
	if err != nil {
		c.stats.detectorFailures.Add(1)
		c.logger.Debug("Detection failed", "error", err)
		return nil
	}
	return regions
}

func (c *FrameCycle) processRegion(ctx context.Context, frame *vision.Frame, slot int, region vision.Region) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrEngineFailure, r)
		}
	}()

	clipped, err := region.Clip(frame.Width, frame.Height)
	if err != nil {
		return Result{}, err
	}
	crop, err := frame.Crop(clipped)
	if err != nil {
		return Result{}, err
	}

	input, err := c.deps.Codec.Encode(crop)
	if err != nil {
		if errors.Is(err, vision.ErrInvalidRegion) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: encode: %v", ErrCodecFailure, err)
	}

	logits, err := c.infer(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
	if c.stopped(ctx) {
		return Result{}, errDiscarded
	}

	dist, err := tensor.Decode(logits)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCodecFailure, err)
	}
	if len(dist) != c.deps.Labels.Len() {
		return Result{}, fmt.Errorf("%w: engine returned %d scores for %d labels", ErrCodecFailure, len(dist), c.deps.Labels.Len())
	}

	idx, confidence := tensor.Argmax(dist)
	label, _ := c.deps.Labels.Label(idx)

	return Result{
		Slot:          slot,
		Region:        clipped,
		RawLabel:      label,
		Confidence:    confidence,
		SmoothedLabel: c.deps.Smoother.Observe(slot, label),
		Timestamp:     c.now(),
	}, nil
}

// infer runs the engine, bounded by InferenceTimeout when one is set
func (c *FrameCycle) infer(ctx context.Context, input *tensor.Tensor) ([]float32, error) {
	if c.cfg.InferenceTimeout <= 0 {
		return c.deps.Engine.Run(ctx, input)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.InferenceTimeout)
	defer cancel()

	type reply struct {
		logits []float32
		err    error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		logits, err := c.deps.Engine.Run(ctx, input)
		ch <- reply{logits: logits, err: err}
	}()

	select {
	case r := <-ch:
		return r.logits, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("inference deadline: %w", ctx.Err())
	}
}

func (c *FrameCycle) recordRegionFailure(slot int, region vision.Region, err error) {
	switch {
	case errors.Is(err, vision.ErrInvalidRegion):
		c.stats.invalidRegions.Add(1)
	case errors.Is(err, ErrCodecFailure):
		c.stats.codecFailures.Add(1)
	default:
		c.stats.engineFailures.Add(1)
	}
	c.logger.Debug("Region skipped", "slot", slot, "region", region.String(), "error", err)
}
