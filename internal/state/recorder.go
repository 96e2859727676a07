package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/service"
)

// RecorderConfig sizes the recorder queue
type RecorderConfig struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Recorder persists sessions and results. It is both a service and a
// pipeline.ResultSink: Publish never blocks the frame cycle; when the queue
// is full the result is dropped and counted against its session.
type Recorder struct {
	*service.ServiceBase
	db  *Database
	cfg RecorderConfig

	queue   chan pipeline.Result
	dropped atomic.Uint64 // drops in the current session
	total   atomic.Uint64 // drops since start
	written atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewRecorder creates a recorder writing to db
func NewRecorder(db *Database, cfg RecorderConfig, log *logger.Logger) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 512
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > cfg.QueueSize {
		cfg.BatchSize = cfg.QueueSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	return &Recorder{
		ServiceBase: service.NewServiceBase("recorder", log),
		db:          db,
		cfg:         cfg,
		queue:       make(chan pipeline.Result, cfg.QueueSize),
		now:         time.Now,
	}
}

// Start launches the writer goroutine
func (r *Recorder) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()

	r.LogInfo("Session recorder started",
		"database", r.db.Path(),
		"queue_size", r.cfg.QueueSize,
		"batch_size", r.cfg.BatchSize,
	)
	return nil
}

// Stop flushes queued results and closes the database
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.LogInfo("Session recorder stopped",
		"written", r.written.Load(),
		"dropped", r.total.Load(),
	)
	return r.db.Close()
}

// Publish implements pipeline.ResultSink
func (r *Recorder) Publish(res pipeline.Result) {
	select {
	case r.queue <- res:
	default:
		r.total.Add(1)
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.PublishEvent(service.EventTypeRecorderDropped, map[string]interface{}{
				"session": res.Session,
				"dropped": n,
			})
			r.LogWarn("Recorder queue full, dropping results", "session", res.Session, "dropped", n)
		}
	}
}

// Transition implements pipeline.ResultSink. Session rows are written
// synchronously; transitions happen on the control path, not the worker.
func (r *Recorder) Transition(session string, running bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if running {
		r.dropped.Store(0)
		if err := r.db.CreateSession(ctx, session, r.now()); err != nil {
			r.LogError("Failed to record session start", err, "session", session)
		}
		return
	}

	if err := r.db.FinishSession(ctx, session, r.now(), r.dropped.Swap(0)); err != nil {
		r.LogError("Failed to record session stop", err, "session", session)
	}
}

// Dropped returns the number of results dropped since start
func (r *Recorder) Dropped() uint64 {
	return r.total.Load()
}

// Written returns the number of results persisted since start
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Database returns the underlying store
func (r *Recorder) Database() *Database {
	return r.db
}

func (r *Recorder) run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]pipeline.Result, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Flushes outlive ctx so the final drain still lands on disk.
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.db.InsertResults(writeCtx, batch); err != nil {
			r.LogError("Failed to persist results", err, "count", len(batch))
		} else {
			r.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case res := <-r.queue:
			batch = append(batch, res)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case res := <-r.queue:
					batch = append(batch, res)
					if len(batch) >= r.cfg.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
