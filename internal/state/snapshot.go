package state

import (
	"github.com/google/uuid"
	"github.com/shaiso/Qlikwatch/internal/domain"
)

// Snapshot — сериализуемый срез состояния run для аудита.
//
// Сохраняется вместе с run в БД после завершения; учётные данные
// сессий в snapshot не попадают.
type Snapshot struct {
	RunID      uuid.UUID                                `json:"run_id"`
	MaxRetries int                                      `json:"max_retries"`
	Overall    domain.GroupStatus                       `json:"overall_status,omitempty"`
	Branches   map[domain.Platform]BranchSnapshot       `json:"branches"`
	Logs       []LogEntry                               `json:"logs"`
}

// BranchSnapshot — срез состояния одной ветки.
type BranchSnapshot struct {
	Status      domain.BranchStatus           `json:"status"`
	RetryCount  int                           `json:"retry_count"`
	Error       string                        `json:"error,omitempty"`
	RecordCount int                           `json:"record_count"`
	Reports     map[string]domain.GroupReport `json:"reports,omitempty"`
}

// Snapshot делает срез состояния.
//
// Вызывается после барьера, когда ветки уже не пишут в свои поля,
// поэтому читает Branch без блокировок.
func (s *RunState) Snapshot() Snapshot {
	overall, _ := s.Overall()

	branches := make(map[domain.Platform]BranchSnapshot, len(s.branches))
	for p, b := range s.branches {
		branches[p] = BranchSnapshot{
			Status:      b.status,
			RetryCount:  b.retryCount,
			Error:       b.lastError,
			RecordCount: len(b.raw),
			Reports:     b.reports,
		}
	}

	return Snapshot{
		RunID:      s.RunID,
		MaxRetries: s.MaxRetries,
		Overall:    overall,
		Branches:   branches,
		Logs:       s.Logs(),
	}
}
