package health

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
)

type staticChecker struct {
	name   string
	status Status
}

func (c staticChecker) Name() string { return c.name }
func (c staticChecker) Check(ctx context.Context) Check {
	return Check{Name: c.name, Status: c.status}
}

func TestManager_AggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"no checks", nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(logger.NewNopLogger(), nil)
			for i, s := range tt.statuses {
				m.RegisterChecker(staticChecker{name: string(rune('a' + i)), status: s})
			}
			report := m.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, report.Status)
			}
			if len(report.Checks) != len(tt.statuses) {
				t.Errorf("Expected %d checks, got %d", len(tt.statuses), len(report.Checks))
			}
		})
	}
}

func TestFileChecker(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "classes.json")
	if err := os.WriteFile(present, []byte(`["a"]`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	ok := NewFileChecker("model_files", map[string]string{"labels": present}).Check(context.Background())
	if ok.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s: %s", ok.Status, ok.Message)
	}

	missing := NewFileChecker("model_files", map[string]string{
		"labels": present,
		"model":  filepath.Join(dir, "missing.onnx"),
	}).Check(context.Background())
	if missing.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", missing.Status)
	}
	if !strings.Contains(missing.Message, "model") {
		t.Errorf("Expected message to name the missing asset, got %q", missing.Message)
	}
}

func TestDatabaseChecker(t *testing.T) {
	disabled := NewDatabaseChecker(nil).Check(context.Background())
	if disabled.Status != StatusDegraded {
		t.Errorf("Expected degraded without a database, got %s", disabled.Status)
	}

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE sessions (id TEXT)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	check := NewDatabaseChecker(db).Check(context.Background())
	if check.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s: %s", check.Status, check.Message)
	}
	if check.Details["sessions"] != int64(0) {
		t.Errorf("Expected 0 sessions, got %v", check.Details["sessions"])
	}

	db.Close()
	closed := NewDatabaseChecker(db).Check(context.Background())
	if closed.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy after close, got %s", closed.Status)
	}
}

type fakeProbe struct {
	running bool
	stats   pipeline.Stats
}

func (p *fakeProbe) Running() bool         { return p.running }
func (p *fakeProbe) Stats() pipeline.Stats { return p.stats }

func TestPipelineChecker(t *testing.T) {
	probe := &fakeProbe{}
	checker := NewPipelineChecker(probe)

	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Errorf("Idle pipeline should be healthy, got %s", got)
	}

	probe.running = true
	probe.stats = pipeline.Stats{Cycles: 10, UnreadySkips: 10}
	if got := checker.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Pipeline without frames should be degraded, got %s", got)
	}

	probe.stats = pipeline.Stats{Cycles: 20, UnreadySkips: 12, ResultsEmitted: 8}
	check := checker.Check(context.Background())
	if check.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", check.Status)
	}
	if check.Details["running"] != true {
		t.Errorf("Expected running detail, got %v", check.Details["running"])
	}
}
