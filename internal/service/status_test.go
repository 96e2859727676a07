package service

import (
	"errors"
	"testing"
	"time"
)

func TestNewServiceStatus(t *testing.T) {
	status := NewServiceStatus("test-service")

	if status.Name != "test-service" {
		t.Errorf("Expected name 'test-service', got %s", status.Name)
	}
	if status.GetStatus() != StatusStopped {
		t.Errorf("Expected initial status %s, got %s", StatusStopped, status.GetStatus())
	}
}

func TestServiceStatus_SetStatus(t *testing.T) {
	status := NewServiceStatus("test-service")

	status.SetError(errors.New("previous failure"))
	status.SetStatus(StatusRunning)

	if !status.IsRunning() {
		t.Errorf("Expected status %s, got %s", StatusRunning, status.GetStatus())
	}
	if status.StartedAt.IsZero() {
		t.Error("StartedAt should be set when status is Running")
	}
	if status.GetError() != nil {
		t.Error("Error should be cleared when status is Running")
	}
}

func TestServiceStatus_SetError(t *testing.T) {
	status := NewServiceStatus("test-service")
	status.SetError(errors.New("test error"))

	if status.GetStatus() != StatusError {
		t.Errorf("Expected status %s, got %s", StatusError, status.GetStatus())
	}
	if status.GetError() == nil {
		t.Error("Error should be set")
	}
}

func TestServiceStatus_Uptime(t *testing.T) {
	status := NewServiceStatus("test-service")
	if status.GetUptime() != 0 {
		t.Error("Stopped service should have zero uptime")
	}

	status.SetStatus(StatusRunning)
	time.Sleep(10 * time.Millisecond)
	if status.GetUptime() <= 0 {
		t.Error("Running service should report uptime")
	}
}

func TestServiceStatus_Snapshot(t *testing.T) {
	status := NewServiceStatus("recorder")
	status.SetError(errors.New("disk full"))

	snap := status.Snapshot()
	if snap.Name != "recorder" || snap.Status != StatusError {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if snap.Error != "disk full" {
		t.Errorf("Expected error text in snapshot, got %q", snap.Error)
	}
}
