package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
)

// FileChecker verifies that the model assets are readable
type FileChecker struct {
	name  string
	paths map[string]string
}

// NewFileChecker checks every path in paths, keyed by a short asset name
func NewFileChecker(name string, paths map[string]string) *FileChecker {
	return &FileChecker{name: name, paths: paths}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
		Status:    StatusHealthy,
		Message:   "Model assets present",
	}

	for asset, path := range c.paths {
		info, err := os.Stat(path)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("%s unavailable: %v", asset, err)
			check.Details[asset] = path
			continue
		}
		check.Details[asset] = info.Size()
	}
	return check
}

// DatabaseChecker checks database connectivity
type DatabaseChecker struct {
	db *sql.DB
}

func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string {
	return "database"
}

func (c *DatabaseChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}

	if c.db == nil {
		check.Status = StatusDegraded
		check.Message = "Session recording disabled"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
		return check
	}

	var sessions int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&sessions); err == nil {
		check.Details["sessions"] = sessions
	}

	check.Status = StatusHealthy
	check.Message = "Database connection OK"
	return check
}

// PipelineProbe is the part of the controller the pipeline checker reads
type PipelineProbe interface {
	Running() bool
	Stats() pipeline.Stats
}

// PipelineChecker reports degraded when a running pipeline is not
// receiving frames
type PipelineChecker struct {
	probe PipelineProbe

	mu   sync.Mutex
	last pipeline.Stats
}

func NewPipelineChecker(probe PipelineProbe) *PipelineChecker {
	return &PipelineChecker{probe: probe}
}

func (c *PipelineChecker) Name() string {
	return "pipeline"
}

func (c *PipelineChecker) Check(ctx context.Context) Check {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.probe.Stats()
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Details: map[string]interface{}{
			"running":       c.probe.Running(),
			"state":         stats.State,
			"cycles":        stats.Cycles,
			"results":       stats.ResultsEmitted,
			"last_cycle_ms": stats.LastCycle.Milliseconds(),
		},
	}

	if !c.probe.Running() {
		check.Message = "Pipeline idle"
		c.last = stats
		return check
	}

	cycles := stats.Cycles - c.last.Cycles
	skipped := (stats.UnreadySkips - c.last.UnreadySkips) + (stats.SourceFailures - c.last.SourceFailures)
	c.last = stats

	if cycles > 0 && skipped == cycles {
		check.Status = StatusDegraded
		check.Message = "No frames received since last check"
		return check
	}
	check.Message = "Pipeline running"
	return check
}
