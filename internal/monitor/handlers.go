package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/engine"
	"github.com/shaiso/Qlikwatch/internal/mq"
	"github.com/shaiso/Qlikwatch/internal/repo"
	"github.com/shaiso/Qlikwatch/internal/state"
	"github.com/shaiso/Qlikwatch/internal/telemetry"
)

// handleRunRequested обрабатывает запрос немедленной проверки.
func (m *Monitor) handleRunRequested(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunRequestedPayload](&delivery.Message)
	if err != nil {
		m.logger.Error("failed to parse run.requested payload", "error", err)
		return err
	}

	m.logger.Debug("received run.requested event",
		"run_id", payload.RunID,
		"triggered_by", payload.TriggeredBy,
	)

	if m.isRunActive(payload.RunID) {
		m.logger.Debug("run already active, skipping", "run_id", payload.RunID)
		return nil
	}

	if err := m.processRun(ctx, payload.RunID); err != nil {
		if errors.Is(err, ErrRunNotPending) || errors.Is(err, ErrRunAlreadyActive) {
			m.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		m.logger.Error("failed to process run", "run_id", payload.RunID, "error", err)
		return err
	}

	return nil
}

// processRun выполняет один мониторинговый run от начала до конца.
func (m *Monitor) processRun(ctx context.Context, runID uuid.UUID) error {
	// 1. Загружаем run из БД
	run, err := m.runRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	// 2. Проверяем статус
	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	// 3. Добавляем в активные
	if err := m.addActiveRun(runID); err != nil {
		return err
	}
	defer m.removeActiveRun(runID)

	// 4. Переводим run в RUNNING
	run.MarkRunning()
	if err := m.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to running: %w", err)
	}

	logger := m.logger.With("run_id", runID, "triggered_by", run.TriggeredBy)
	logger.Info("run started")

	// 5. Прогоняем через движок
	st := state.New(runID, m.maxRetries)
	result, execErr := m.engine.Execute(ctx, st)

	// 6. Финализируем
	if execErr != nil {
		m.failRun(ctx, run, st, execErr)
	} else {
		m.succeedRun(ctx, run, st, result)
	}

	telemetry.RunsTotal.WithLabelValues(string(run.Status), fmt.Sprintf("%t", run.Partial)).Inc()
	telemetry.RunDuration.Observe(run.Duration().Seconds())
	logger.Info("run finished",
		"status", run.Status,
		"overall", run.OverallStatus,
		"partial", run.Partial,
		"duration", run.Duration(),
	)
	return nil
}

// succeedRun завершает run с готовым отчётом.
func (m *Monitor) succeedRun(ctx context.Context, run *domain.Run, st *state.RunState, result *engine.Result) {
	run.ArtifactRef = result.ArtifactPath

	// Загружаем артефакт в хранилище; локальный файл остаётся
	// источником истины при сбое загрузки.
	var artifactURL string
	if m.store != nil && result.ArtifactPath != "" {
		key, err := m.store.Put(ctx, result.ArtifactPath)
		if err != nil {
			m.logger.Warn("failed to upload artifact", "run_id", run.ID, "error", err)
		} else {
			run.ArtifactRef = key
			if url, err := m.store.PresignGet(ctx, key, 0); err == nil {
				artifactURL = url
			}
		}
	}

	run.MarkSucceeded(result.Report.OverallStatus, result.Report.Partial)
	m.persist(ctx, run, st, result)

	if m.publisher != nil {
		err := m.publisher.PublishReportCompleted(ctx, mq.ReportCompletedPayload{
			RunID:         run.ID,
			OverallStatus: string(run.OverallStatus),
			Partial:       run.Partial,
			ArtifactRef:   run.ArtifactRef,
			ArtifactURL:   artifactURL,
		})
		if err != nil {
			// Не фатальная ошибка — отчёт уже сохранён.
			m.logger.Warn("failed to publish report.completed", "run_id", run.ID, "error", err)
		}
	}
}

// failRun завершает run без пригодного отчёта.
func (m *Monitor) failRun(ctx context.Context, run *domain.Run, st *state.RunState, execErr error) {
	run.MarkFailed(execErr.Error())
	m.persist(ctx, run, st, nil)
}

// persist сохраняет финальное состояние run, снимок и отчёты групп.
// Ошибки персистентности логируются, но не меняют исход run.
func (m *Monitor) persist(ctx context.Context, run *domain.Run, st *state.RunState, result *engine.Result) {
	if err := m.runRepo.Update(ctx, run); err != nil {
		m.logger.Error("failed to update run", "run_id", run.ID, "error", err)
	}
	if err := m.runRepo.SaveSnapshot(ctx, run.ID, st.Snapshot()); err != nil {
		m.logger.Error("failed to save snapshot", "run_id", run.ID, "error", err)
	}
	if result != nil && m.reportRepo != nil {
		if err := m.reportRepo.SaveAll(ctx, run.ID, result.Report); err != nil {
			m.logger.Error("failed to save group reports", "run_id", run.ID, "error", err)
		}
	}
}
