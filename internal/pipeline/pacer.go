package pipeline

import (
	"context"
	"time"
)

// Pacer re-arms a one-shot timer after each tick so the next cycle starts
// no earlier than interval after the previous one began. A slow cycle is
// followed immediately by the next, never by a backlog.
type Pacer struct {
	interval time.Duration
	timer    *time.Timer
}

// NewPacer creates a pacer for the given frame interval
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the remainder of the interval has passed or ctx is done
func (p *Pacer) Wait(ctx context.Context, elapsed time.Duration) error {
	delay := p.interval - elapsed
	if delay <= 0 {
		return ctx.Err()
	}

	if p.timer == nil {
		p.timer = time.NewTimer(delay)
	} else {
		p.timer.Reset(delay)
	}

	select {
	case <-p.timer.C:
		return nil
	case <-ctx.Done():
		p.timer.Stop()
		return ctx.Err()
	}
}
