package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

// Normalizer переводит сырой статус платформы в TaskState.
type Normalizer func(rec domain.TaskRecord) domain.TaskState

// NormalizeConsole — словарь статусов консоли задач.
//
// Failed: Failed, Error, Aborted, Skipped, Never started, Reset.
// Running: Started, Triggered, Retrying, Aborting.
// Pending: Queued.
// Остальное (включая Success) — Success.
func NormalizeConsole(rec domain.TaskRecord) domain.TaskState {
	switch strings.ToLower(strings.TrimSpace(rec.Status)) {
	case "failed", "error", "aborted", "skipped", "never started", "reset":
		return domain.TaskFailed
	case "started", "triggered", "retrying", "aborting":
		return domain.TaskRunning
	case "queued":
		return domain.TaskPending
	default:
		return domain.TaskSuccess
	}
}

// NormalizePublisher — словарь статусов системы публикации.
//
// Failed: Failed, Error, Aborted.
// Running: Running, либо Completed с прогрессом < 100%.
// Pending: Queued, Waiting.
// Completed на 100% — Success.
func NormalizePublisher(rec domain.TaskRecord) domain.TaskState {
	switch strings.ToLower(strings.TrimSpace(rec.Status)) {
	case "failed", "error", "aborted":
		return domain.TaskFailed
	case "running":
		return domain.TaskRunning
	case "queued", "waiting":
		return domain.TaskPending
	case "completed":
		if rec.Progress < 100 {
			return domain.TaskRunning
		}
		return domain.TaskSuccess
	default:
		return domain.TaskSuccess
	}
}

// Rules — детерминированный классификатор.
//
// Применяет иерархию FAILED > RUNNING > PENDING > SUCCESS к состояниям
// задач группы. Выключенные задачи не участвуют: группа, в которой все
// задачи выключены, считается NO_RUN.
type Rules struct {
	normalize Normalizer
}

// NewRules создаёт классификатор с указанным словарём статусов.
func NewRules(normalize Normalizer) *Rules {
	return &Rules{normalize: normalize}
}

// Classify выводит отчёт группы из её записей.
func (r *Rules) Classify(_ context.Context, group string, records []domain.TaskRecord) (domain.GroupReport, error) {
	enabled := make([]domain.TaskRecord, 0, len(records))
	for _, rec := range records {
		if rec.Disabled {
			continue
		}
		enabled = append(enabled, rec)
	}

	if len(enabled) == 0 {
		summary := "No execution records found for today."
		if len(records) > 0 {
			summary = "No enabled tasks found for this process today."
		}
		return domain.GroupReport{
			Status:  domain.GroupNoRun,
			Summary: summary,
		}, nil
	}

	states := make([]domain.TaskState, len(enabled))
	var failed, running []string
	for i, rec := range enabled {
		states[i] = r.normalize(rec)
		switch states[i] {
		case domain.TaskFailed:
			failed = append(failed, rec.Name)
		case domain.TaskRunning:
			running = append(running, rec.Name)
		}
	}

	status := domain.StatusFromTasks(states)
	return domain.GroupReport{
		Status:       status,
		Summary:      groupSummary(group, status, len(enabled), failed, running),
		FailedTasks:  failed,
		RunningTasks: running,
		TaskCount:    len(enabled),
	}, nil
}

// groupSummary строит однострочное пояснение к статусу группы.
func groupSummary(group string, status domain.GroupStatus, total int, failed, running []string) string {
	switch status {
	case domain.GroupFailed:
		return fmt.Sprintf("%d of %d tasks failed: %s", len(failed), total, strings.Join(failed, ", "))
	case domain.GroupRunning:
		return fmt.Sprintf("%d of %d tasks still running", len(running), total)
	case domain.GroupPending:
		return fmt.Sprintf("%d tasks queued, no active execution", total)
	case domain.GroupSuccess:
		return fmt.Sprintf("All %d tasks completed successfully", total)
	default:
		return fmt.Sprintf("No executions recorded for %s today", group)
	}
}
