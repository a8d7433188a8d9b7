package monitor

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew_Defaults(t *testing.T) {
	m := New(Config{})

	if m.pollInterval != defaultPollInterval {
		t.Errorf("expected default poll interval, got %v", m.pollInterval)
	}
	if m.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size, got %d", m.batchSize)
	}
	if m.activeRuns == nil {
		t.Error("activeRuns map should be initialized")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	m := New(Config{
		PollInterval: 5 * time.Second,
		BatchSize:    50,
	})

	if m.pollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", m.pollInterval)
	}
	if m.batchSize != 50 {
		t.Errorf("expected batch size 50, got %d", m.batchSize)
	}
}

func TestMonitor_ActiveRuns(t *testing.T) {
	m := New(Config{})
	runID := uuid.New()

	if m.ActiveRunsCount() != 0 {
		t.Error("should have no active runs initially")
	}
	if m.isRunActive(runID) {
		t.Error("run should not be active initially")
	}

	if err := m.addActiveRun(runID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ActiveRunsCount() != 1 {
		t.Error("should have 1 active run")
	}
	if !m.isRunActive(runID) {
		t.Error("run should be active")
	}

	if err := m.addActiveRun(runID); err != ErrRunAlreadyActive {
		t.Errorf("expected ErrRunAlreadyActive, got %v", err)
	}

	m.removeActiveRun(runID)
	if m.ActiveRunsCount() != 0 {
		t.Error("should have no active runs after removal")
	}
	if m.isRunActive(runID) {
		t.Error("run should not be active after removal")
	}
}
