package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/state"
)

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, status, triggered_by, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.TriggeredBy,
		nullString(run.IdempotencyKey),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := runSelect + ` WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает run по ключу идемпотентности.
func (r *RunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Run, error) {
	query := runSelect + ` WHERE idempotency_key = $1`
	return scanRun(r.pool.QueryRow(ctx, query, key))
}

// List возвращает список runs с фильтрацией.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := runSelect + `
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// ListPending возвращает runs в статусе PENDING, старые первыми.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := runSelect + `
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// Update обновляет изменяемые поля run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = $2, overall_status = $3, partial = $4,
		    artifact_ref = $5, error = $6, started_at = $7, finished_at = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		nullString(string(run.OverallStatus)),
		run.Partial,
		nullString(run.ArtifactRef),
		nullString(run.Error),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSnapshot сохраняет снимок состояния run для аудита.
func (r *RunRepo) SaveSnapshot(ctx context.Context, id uuid.UUID, snap state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	result, err := r.pool.Exec(ctx,
		`UPDATE runs SET snapshot = $2 WHERE id = $1`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSnapshot возвращает сохранённый снимок состояния run.
func (r *RunRepo) GetSnapshot(ctx context.Context, id uuid.UUID) (*state.Snapshot, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM runs WHERE id = $1`,
		id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if data == nil {
		return nil, ErrNotFound
	}

	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Status domain.RunStatus
	Limit  int
	Offset int
}

const runSelect = `
	SELECT id, status, overall_status, partial, triggered_by,
	       idempotency_key, artifact_ref, error, started_at, finished_at, created_at
	FROM runs
`

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	run, err := scanRunFields(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func collectRuns(rows pgx.Rows) ([]domain.Run, error) {
	var runs []domain.Run
	for rows.Next() {
		run, err := scanRunFields(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRunFields(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var overall, idempotencyKey, artifactRef, runError *string

	err := row.Scan(
		&run.ID,
		&run.Status,
		&overall,
		&run.Partial,
		&run.TriggeredBy,
		&idempotencyKey,
		&artifactRef,
		&runError,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if overall != nil {
		run.OverallStatus = domain.GroupStatus(*overall)
	}
	if idempotencyKey != nil {
		run.IdempotencyKey = *idempotencyKey
	}
	if artifactRef != nil {
		run.ArtifactRef = *artifactRef
	}
	if runError != nil {
		run.Error = *runError
	}
	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
