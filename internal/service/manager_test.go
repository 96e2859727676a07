package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	if mgr.GetServiceCount() != 0 {
		t.Errorf("Expected 0 services, got %d", mgr.GetServiceCount())
	}
	if mgr.GetEventBus() == nil {
		t.Error("Event bus should be initialized")
	}
}

func TestManager_Register(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	mgr.Register(&mockService{name: "test-service"})

	if mgr.GetServiceCount() != 1 {
		t.Errorf("Expected 1 service, got %d", mgr.GetServiceCount())
	}
	status := mgr.GetServiceStatus("test-service")
	if status == nil {
		t.Fatal("Service status should be created")
	}
	if status.GetStatus() != StatusStopped {
		t.Errorf("Expected status %s, got %s", StatusStopped, status.GetStatus())
	}
}

func TestManager_Register_WithEvents(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	svc := &mockServiceWithEvents{ServiceBase: NewServiceBase("event-service", logger.NewNopLogger())}
	mgr.Register(svc)

	if svc.GetEventBus() != mgr.GetEventBus() {
		t.Error("Event bus should be set for service with events")
	}
}

func TestManager_Start(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	svc := &mockService{name: "test-service"}
	mgr.Register(svc)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := mgr.GetServiceStatus("test-service")
	if !status.IsRunning() {
		t.Errorf("Expected status %s, got %s", StatusRunning, status.GetStatus())
	}
	if !svc.isStarted() {
		t.Error("Service should have been started")
	}
}

func TestManager_Start_ServiceError(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	failing := &mockService{name: "failing-service", startError: errors.New("start failed")}
	healthy := &mockService{name: "healthy-service"}
	mgr.Register(failing)
	mgr.Register(healthy)

	errCh := mgr.GetEventBus().Subscribe(EventTypeServiceError)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start should not fail even if a service fails: %v", err)
	}

	status := mgr.GetServiceStatus("failing-service")
	if status.GetStatus() != StatusError || status.GetError() == nil {
		t.Errorf("Expected errored status, got %s", status.GetStatus())
	}
	if !mgr.GetServiceStatus("healthy-service").IsRunning() {
		t.Error("Later services should still start")
	}

	select {
	case event := <-errCh:
		if event.Source != "failing-service" {
			t.Errorf("Expected error event from failing-service, got %s", event.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected service error event")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if failing.isStopped() {
		t.Error("A service that never started should not be stopped")
	}
}

func TestManager_Shutdown_ReverseOrder(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	var mu sync.Mutex
	var stopOrder []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			stopOrder = append(stopOrder, name)
		}
	}

	mgr.Register(&mockService{name: "recorder", onStop: record("recorder")})
	mgr.Register(&mockService{name: "pipeline", onStop: record("pipeline")})
	mgr.Register(&mockService{name: "web", onStop: record("web")})

	mgr.Start(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"web", "pipeline", "recorder"}
	if len(stopOrder) != len(want) {
		t.Fatalf("Expected %d services stopped, got %d", len(want), len(stopOrder))
	}
	for i := range want {
		if stopOrder[i] != want[i] {
			t.Errorf("Stop %d: expected %s, got %s", i, want[i], stopOrder[i])
		}
	}
	for _, name := range want {
		if mgr.GetServiceStatus(name).GetStatus() != StatusStopped {
			t.Errorf("%s should be stopped", name)
		}
	}
}

func TestManager_Shutdown_Timeout(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	mgr.Register(&mockService{name: "slow-service", stopDelay: 2 * time.Second})

	mgr.Start(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := mgr.Shutdown(shutdownCtx); err == nil {
		t.Error("Shutdown should timeout and return error")
	}
}

func TestManager_Snapshots(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	mgr.Register(&mockService{name: "service-1"})
	mgr.Register(&mockService{name: "service-2"})

	if len(mgr.GetAllStatuses()) != 2 {
		t.Errorf("Expected 2 statuses, got %d", len(mgr.GetAllStatuses()))
	}

	snaps := mgr.Snapshots()
	if len(snaps) != 2 || snaps[0].Name != "service-1" || snaps[1].Name != "service-2" {
		t.Errorf("Snapshots should follow registration order, got %+v", snaps)
	}
}

type mockService struct {
	name       string
	startError error
	stopDelay  time.Duration
	onStop     func()

	mu      sync.Mutex
	started bool
	stopped bool
}

func (m *mockService) Name() string {
	return m.name
}

func (m *mockService) Start(ctx context.Context) error {
	if m.startError != nil {
		return m.startError
	}
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	return nil
}

func (m *mockService) Stop(ctx context.Context) error {
	if m.stopDelay > 0 {
		time.Sleep(m.stopDelay)
	}
	if m.onStop != nil {
		m.onStop()
	}
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	return nil
}

func (m *mockService) isStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *mockService) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type mockServiceWithEvents struct {
	*ServiceBase
}

func (m *mockServiceWithEvents) Start(ctx context.Context) error { return nil }
func (m *mockServiceWithEvents) Stop(ctx context.Context) error  { return nil }
