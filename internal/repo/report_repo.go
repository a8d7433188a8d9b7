package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Qlikwatch/internal/domain"
)

// GroupReportRow — отчёт по одной группе, привязанный к run.
type GroupReportRow struct {
	RunID    uuid.UUID
	Platform domain.Platform
	Group    string
	Report   domain.GroupReport
}

// ReportRepo — репозиторий отчётов по группам.
//
// Строки пишутся один раз после завершения run и дальше только
// читаются (история вердиктов по каждому процессу).
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo создаёт новый ReportRepo.
func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// SaveAll сохраняет отчёты всех групп run одной транзакцией.
func (r *ReportRepo) SaveAll(ctx context.Context, runID uuid.UUID, rep *domain.CombinedReport) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO group_reports (run_id, platform, group_name, status, summary, details, task_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for platform, summary := range rep.Platforms {
		for group, gr := range summary.Groups {
			details, err := json.Marshal(map[string][]string{
				"failed_tasks":  gr.FailedTasks,
				"running_tasks": gr.RunningTasks,
			})
			if err != nil {
				return fmt.Errorf("marshal details: %w", err)
			}
			if _, err := tx.Exec(ctx, query,
				runID, platform, group, gr.Status, gr.Summary, details, gr.TaskCount,
			); err != nil {
				return fmt.Errorf("insert group report: %w", err)
			}
		}
	}
	return tx.Commit(ctx)
}

// ListByRun возвращает отчёты групп для одного run.
func (r *ReportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]GroupReportRow, error) {
	query := `
		SELECT run_id, platform, group_name, status, summary, details, task_count
		FROM group_reports
		WHERE run_id = $1
		ORDER BY platform, group_name
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list group reports: %w", err)
	}
	defer rows.Close()

	var out []GroupReportRow
	for rows.Next() {
		var row GroupReportRow
		var details []byte
		if err := rows.Scan(
			&row.RunID,
			&row.Platform,
			&row.Group,
			&row.Report.Status,
			&row.Report.Summary,
			&details,
			&row.Report.TaskCount,
		); err != nil {
			return nil, fmt.Errorf("scan group report: %w", err)
		}
		if details != nil {
			var parsed map[string][]string
			if err := json.Unmarshal(details, &parsed); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
			row.Report.FailedTasks = parsed["failed_tasks"]
			row.Report.RunningTasks = parsed["running_tasks"]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
