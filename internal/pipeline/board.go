package pipeline

import (
	"sync"
	"time"
)

// Board status texts
const (
	BoardReady     = "ready"
	BoardDetecting = "detecting"
	BoardStopped   = "stopped"

	// NoSignal is the label shown when nothing has been classified
	NoSignal = "-"
)

// BoardSnapshot is the headline view of the pipeline
type BoardSnapshot struct {
	Status     string    `json:"status"`
	Session    string    `json:"session,omitempty"`
	Emotion    string    `json:"emotion"`
	Confidence float32   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Board tracks the headline emotion from slot 0, refreshed at most once per
// throttle interval. It is a ResultSink.
type Board struct {
	throttle time.Duration
	now      func() time.Time

	mu         sync.RWMutex
	status     string
	session    string
	emotion    string
	confidence float32
	updated    time.Time
}

// NewBoard creates a board in the ready state
func NewBoard(throttle time.Duration) *Board {
	return &Board{
		throttle: throttle,
		now:      time.Now,
		status:   BoardReady,
		emotion:  NoSignal,
	}
}

// Publish updates the headline from slot 0 once the throttle interval has
// strictly elapsed since the last update
func (b *Board) Publish(r Result) {
	if r.Slot != 0 {
		return
	}

	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != BoardDetecting {
		return
	}
	if !b.updated.IsZero() && now.Sub(b.updated) <= b.throttle {
		return
	}
	b.emotion = r.SmoothedLabel
	b.confidence = r.Confidence
	b.updated = now
}

// Transition switches between detecting and stopped. Both directions clear
// the headline back to no signal.
func (b *Board) Transition(session string, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.emotion = NoSignal
	b.confidence = 0
	b.updated = time.Time{}
	if running {
		b.status = BoardDetecting
		b.session = session
	} else {
		b.status = BoardStopped
		b.session = ""
	}
}

// Snapshot returns the current headline
func (b *Board) Snapshot() BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BoardSnapshot{
		Status:     b.status,
		Session:    b.session,
		Emotion:    b.emotion,
		Confidence: b.confidence,
		UpdatedAt:  b.updated,
	}
}
