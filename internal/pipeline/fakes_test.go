package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Futsu-coder/Emotion-Detection/internal/tensor"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

var testLabels = []string{"angry", "happy", "sad"}

type fakeSource struct {
	width, height int
	unready       atomic.Bool
	nextErr       error
	panicOnNext   bool
	openErr       error

	issued   atomic.Int32
	released atomic.Int32
	opened   atomic.Int32
	closed   atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{width: 64, height: 48}
}

func (s *fakeSource) Open(ctx context.Context) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opened.Add(1)
	return nil
}

func (s *fakeSource) Next(ctx context.Context) (*vision.Frame, error) {
	if s.panicOnNext {
		panic("camera unplugged")
	}
	if s.nextErr != nil {
		return nil, s.nextErr
	}
	if s.unready.Load() {
		return nil, ErrSourceUnready
	}
	pix := make([]byte, s.width*s.height*4)
	for i := range pix {
		pix[i] = byte(i)
	}
	s.issued.Add(1)
	return vision.NewFrame(s.width, s.height, vision.FormatRGBA, pix, func() { s.released.Add(1) })
}

func (s *fakeSource) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeDetector struct {
	mu      sync.Mutex
	regions []vision.Region
	err     error
	panics  bool
	calls   int
}

func (d *fakeDetector) Detect(ctx context.Context, gray *vision.Frame) ([]vision.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.panics {
		panic("cascade corrupted")
	}
	if gray.Format != vision.FormatGray {
		panic("detector expects gray input")
	}
	return append([]vision.Region(nil), d.regions...), d.err
}

func (d *fakeDetector) set(regions []vision.Region) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regions = regions
}

// fakeEngine answers with logits favouring labels[winner(call)] unless fn is set
type fakeEngine struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int) ([]float32, error)
}

func (e *fakeEngine) Run(ctx context.Context, t *tensor.Tensor) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	fn := e.fn
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, call)
	}
	return logitsFor(1), nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func logitsFor(winner int) []float32 {
	out := make([]float32, len(testLabels))
	out[winner] = 4
	return out
}

type transition struct {
	session string
	running bool
}

type recordingSink struct {
	mu          sync.Mutex
	results     []Result
	transitions []transition
}

func (s *recordingSink) Publish(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *recordingSink) Transition(session string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, transition{session, running})
}

func (s *recordingSink) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}

func (s *recordingSink) Transitions() []transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transition(nil), s.transitions...)
}

func regionsN(n int) []vision.Region {
	out := make([]vision.Region, n)
	for i := range out {
		out[i] = vision.Region{X: i * 4, Y: 2, Width: 10 + i, Height: 12}
	}
	return out
}
