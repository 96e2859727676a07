package pipeline

import "errors"

var (
	// ErrSourceUnready means no frame is available yet; the cycle retries on the next tick
	ErrSourceUnready = errors.New("frame source not ready")
	// ErrCodecFailure wraps encode and decode problems for a single region
	ErrCodecFailure = errors.New("codec failure")
	// ErrEngineFailure wraps inference errors, panics and deadline expiry
	ErrEngineFailure = errors.New("inference engine failure")
	// ErrAlreadyRunning is returned by Start while a session is active
	ErrAlreadyRunning = errors.New("pipeline already running")
	// ErrNotRunning is returned by queries that need an active session
	ErrNotRunning = errors.New("pipeline not running")
	// ErrCycleInFlight is returned by Tick when another tick has not finished
	ErrCycleInFlight = errors.New("frame cycle already in flight")

	// errDiscarded marks a region whose inference finished after stop
	errDiscarded = errors.New("result discarded after stop")
)
