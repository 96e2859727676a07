package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of frame cycle counters
type Stats struct {
	State              string        `json:"state"`
	Cycles             uint64        `json:"cycles"`
	UnreadySkips       uint64        `json:"unready_skips"`
	SourceFailures     uint64        `json:"source_failures"`
	DetectorFailures   uint64        `json:"detector_failures"`
	InvalidRegions     uint64        `json:"invalid_regions"`
	CodecFailures      uint64        `json:"codec_failures"`
	EngineFailures     uint64        `json:"engine_failures"`
	ResultsEmitted     uint64        `json:"results_emitted"`
	DiscardedAfterStop uint64        `json:"discarded_after_stop"`
	LastCycle          time.Duration `json:"last_cycle_ns"`
}

type counters struct {
	cycles           atomic.Uint64
	unready          atomic.Uint64
	sourceFailures   atomic.Uint64
	detectorFailures atomic.Uint64
	invalidRegions   atomic.Uint64
	codecFailures    atomic.Uint64
	engineFailures   atomic.Uint64
	results          atomic.Uint64
	discarded        atomic.Uint64
	lastCycle        atomic.Int64
}

func (c *counters) snapshot(state State) Stats {
	return Stats{
		State:              state.String(),
		Cycles:             c.cycles.Load(),
		UnreadySkips:       c.unready.Load(),
		SourceFailures:     c.sourceFailures.Load(),
		DetectorFailures:   c.detectorFailures.Load(),
		InvalidRegions:     c.invalidRegions.Load(),
		CodecFailures:      c.codecFailures.Load(),
		EngineFailures:     c.engineFailures.Load(),
		ResultsEmitted:     c.results.Load(),
		DiscardedAfterStop: c.discarded.Load(),
		LastCycle:          time.Duration(c.lastCycle.Load()),
	}
}
