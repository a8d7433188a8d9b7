package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Qlikwatch/internal/config"
	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/mq"
	"github.com/shaiso/Qlikwatch/internal/repo"
)

// scheduleName — имя единственного встроенного расписания.
// Участвует в ключе идемпотентности.
const scheduleName = "daily"

// Scheduler создаёт ежедневные runs по расписанию из конфигурации.
type Scheduler struct {
	schedule  config.ScheduleConfig
	runRepo   *repo.RunRepo
	publisher *mq.Publisher
	logger    *slog.Logger

	// nextDue — ближайшее время запуска; пересчитывается после
	// каждого срабатывания. Хранится в UTC.
	nextDue time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedule  config.ScheduleConfig
	RunRepo   *repo.RunRepo
	Publisher *mq.Publisher // опционально: без него runner заберёт run через polling
	Logger    *slog.Logger
}

// New создаёт новый Scheduler с вычисленным первым временем запуска.
func New(cfg Config) (*Scheduler, error) {
	if err := ValidateCronExpr(cfg.Schedule.Cron); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	next, err := CalculateNextDue(cfg.Schedule.Cron, cfg.Schedule.Timezone, time.Now())
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		schedule:  cfg.Schedule,
		runRepo:   cfg.RunRepo,
		publisher: cfg.Publisher,
		logger:    logger,
		nextDue:   next,
	}, nil
}

// NextDue возвращает ближайшее время запуска (UTC).
func (s *Scheduler) NextDue() time.Time {
	return s.nextDue
}

// Tick выполняет один тик планировщика.
//
// Если время запуска наступило:
//  1. Создаёт run с ключом идемпотентности "{schedule}_{due_unix}"
//     (рестарт процесса в ту же минуту не породит дубликат)
//  2. Пересчитывает next_due
//  3. Публикует run.requested в RabbitMQ
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()
	if now.Before(s.nextDue) {
		return nil
	}

	due := s.nextDue
	idempKey := fmt.Sprintf("%s_%d", scheduleName, due.Unix())

	runID, created, err := s.createRun(ctx, idempKey, now)
	if err != nil {
		return err
	}

	next, err := CalculateNextDue(s.schedule.Cron, s.schedule.Timezone, now)
	if err != nil {
		// Выражение валидировалось в New; сюда попадать не должны.
		return fmt.Errorf("calculate next due: %w", err)
	}
	s.nextDue = next

	if created {
		s.logger.Info("created scheduled run",
			"run_id", runID,
			"due", due,
			"next_due", s.nextDue,
		)
	}

	if s.publisher != nil && created {
		if err := s.publisher.PublishRunRequested(ctx, runID, "schedule"); err != nil {
			// Не фатальная ошибка — run уже создан в БД,
			// runner заберёт его через polling.
			s.logger.Warn("failed to publish run.requested",
				"run_id", runID,
				"error", err,
			)
		}
	}

	return nil
}

// createRun создаёт run, если он ещё не создан для этого срабатывания.
// Возвращает ID run и признак того, что run создан этим вызовом.
func (s *Scheduler) createRun(ctx context.Context, idempKey string, now time.Time) (uuid.UUID, bool, error) {
	existing, err := s.runRepo.GetByIdempotencyKey(ctx, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Debug("run already exists (idempotency)",
			"run_id", existing.ID,
			"idempotency_key", idempKey,
		)
		return existing.ID, false, nil
	}

	run := &domain.Run{
		ID:             uuid.New(),
		Status:         domain.RunStatusPending,
		TriggeredBy:    "schedule",
		IdempotencyKey: idempKey,
		CreatedAt:      now,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return uuid.Nil, false, fmt.Errorf("create run: %w", err)
	}
	return run.ID, true, nil
}
