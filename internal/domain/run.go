package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus — статус выполнения мониторингового run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — run завершён, отчёт сформирован
	// (возможно частичный, см. Run.Partial).
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run завершился без пригодного отчёта:
	// обе ветки упали, либо упал сам emitter.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// Run — один проход мониторинга обеих платформ.
//
// Run создаётся когда:
//   - Scheduler срабатывает по расписанию
//   - Пользователь запрашивает немедленную проверку (через CLI)
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// OverallStatus — итоговый вердикт агрегатора.
	// Пустой, пока обе ветки не достигли терминального статуса.
	OverallStatus GroupStatus `json:"overall_status,omitempty"`

	// Partial — отчёт построен по данным только одной платформы.
	Partial bool `json:"partial,omitempty"`

	// TriggeredBy — источник запуска: "schedule" или "cli".
	TriggeredBy string `json:"triggered_by"`

	// IdempotencyKey — ключ идемпотентности для scheduled runs:
	// "{schedule}_{next_due_at}". Предотвращает дубликаты.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// ArtifactRef — ссылка на опубликованный артефакт отчёта.
	ArtifactRef string `json:"artifact_ref,omitempty"`

	// Error — текст ошибки, если run завершился FAILED.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED с итоговым вердиктом.
func (r *Run) MarkSucceeded(overall GroupStatus, partial bool) {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.OverallStatus = overall
	r.Partial = partial
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.OverallStatus = GroupFailed
	r.FinishedAt = &now
	r.Error = err
}
