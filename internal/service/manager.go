package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/logger"
)

const (
	stopTimeout   = 10 * time.Second
	busBufferSize = 100
	managerSource = "manager"
)

// Service is a component the manager starts and stops
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// ServiceWithEvents receives the shared event bus on registration
type ServiceWithEvents interface {
	Service
	SetEventBus(bus *EventBus)
}

// Manager starts services in registration order and stops the ones that
// came up in reverse, each bounded by stopTimeout.
type Manager struct {
	logger   *logger.Logger
	bus      *EventBus
	mu       sync.RWMutex
	services []Service
	statuses map[string]*ServiceStatus
	started  []Service
}

func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		logger:   log,
		bus:      NewEventBus(busBufferSize),
		statuses: make(map[string]*ServiceStatus),
	}
}

func (m *Manager) GetEventBus() *EventBus {
	return m.bus
}

// Register adds a service; it is started by the next Start
func (m *Manager) Register(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.services = append(m.services, svc)
	m.statuses[svc.Name()] = NewServiceStatus(svc.Name())
	if ws, ok := svc.(ServiceWithEvents); ok {
		ws.SetEventBus(m.bus)
	}
}

// Start brings every service up. A failed service is marked errored and
// the rest still start.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting services", "count", len(m.services))
	go m.traceEvents(ctx, m.bus.SubscribeAll())

	for _, svc := range m.services {
		if m.startOne(ctx, svc) {
			m.started = append(m.started, svc)
		}
	}
	return nil
}

func (m *Manager) startOne(ctx context.Context, svc Service) bool {
	name := svc.Name()
	status := m.statuses[name]
	status.SetStatus(StatusStarting)

	if err := svc.Start(ctx); err != nil {
		status.SetError(err)
		m.logger.Error("Service failed to start", "service", name, "error", err)
		m.bus.Publish(Event{
			Type:   EventTypeServiceError,
			Source: name,
			Data:   map[string]interface{}{"error": err.Error()},
		})
		return false
	}

	status.SetStatus(StatusRunning)
	m.logger.Info("Service started", "service", name)
	m.bus.Publish(Event{
		Type:   EventTypeServiceStarted,
		Source: managerSource,
		Data:   map[string]interface{}{"service": name},
	})
	return true
}

func (m *Manager) traceEvents(ctx context.Context, ch <-chan Event) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.logger.Debug("Event", "type", ev.Type, "source", ev.Source, "timestamp", ev.Timestamp)
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops started services newest first. It returns early with an
// error if ctx expires; the bus is only closed after a full stop.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Shutting down services", "count", len(m.started))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(m.started) - 1; i >= 0; i-- {
			m.stopOne(ctx, m.started[i])
		}
	}()

	select {
	case <-done:
		m.started = nil
		m.bus.Close()
		m.logger.Info("All services stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (m *Manager) stopOne(ctx context.Context, svc Service) {
	name := svc.Name()
	status := m.statuses[name]
	status.SetStatus(StatusStopping)

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	if err := svc.Stop(stopCtx); err != nil {
		status.SetError(err)
		m.logger.Error("Failed to stop service", "service", name, "error", err)
	} else {
		status.SetStatus(StatusStopped)
		m.logger.Info("Service stopped", "service", name)
	}

	m.bus.Publish(Event{
		Type:   EventTypeServiceStopped,
		Source: managerSource,
		Data:   map[string]interface{}{"service": name},
	})
}

func (m *Manager) GetServiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

func (m *Manager) GetServiceStatus(name string) *ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[name]
}

// GetAllStatuses returns a copy of the status map
func (m *Manager) GetAllStatuses() map[string]*ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*ServiceStatus, len(m.statuses))
	for name, st := range m.statuses {
		out[name] = st
	}
	return out
}

// Snapshots lists statuses in registration order
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.services))
	for _, svc := range m.services {
		out = append(out, m.statuses[svc.Name()].Snapshot())
	}
	return out
}
