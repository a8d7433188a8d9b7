package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Qlikwatch/internal/artifact"
	"github.com/shaiso/Qlikwatch/internal/engine"
	"github.com/shaiso/Qlikwatch/internal/mq"
	"github.com/shaiso/Qlikwatch/internal/repo"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 10
)

// Monitor управляет выполнением мониторинговых runs.
//
// Monitor — связующий компонент runner-а, который:
//   - Получает запросы проверок из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending runs в БД (polling fallback)
//   - Прогоняет run через движок (обе ветки, барьер, отчёт)
//   - Загружает артефакт в объектное хранилище (опционально)
//   - Сохраняет снимок состояния и отчёты групп для аудита
//   - Финализирует runs (SUCCEEDED/FAILED) и публикует report.completed
type Monitor struct {
	// Repositories
	runRepo    *repo.RunRepo
	reportRepo *repo.ReportRepo

	// Engine
	engine     *engine.Engine
	maxRetries int

	// Artifacts (опционально)
	store *artifact.Store

	// MQ (опционально: без соединения работает только polling)
	publisher *mq.Publisher
	conn      *mq.Connection

	// Active runs — runs в процессе выполнения
	activeRuns map[uuid.UUID]struct{}
	mu         sync.RWMutex

	// Consumers
	runConsumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Monitor.
type Config struct {
	RunRepo    *repo.RunRepo
	ReportRepo *repo.ReportRepo

	Engine     *engine.Engine
	MaxRetries int

	Store *artifact.Store

	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество runs за один poll (default: 10)

	Logger *slog.Logger
}

// New создаёт новый Monitor.
func New(cfg Config) *Monitor {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		runRepo:      cfg.RunRepo,
		reportRepo:   cfg.ReportRepo,
		engine:       cfg.Engine,
		maxRetries:   cfg.MaxRetries,
		store:        cfg.Store,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		activeRuns:   make(map[uuid.UUID]struct{}),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Monitor.
//
// Запускает:
//   - Consumer для runs.requested (если настроен MQ)
//   - Polling горутину для fallback
func (m *Monitor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel

	m.logger.Info("starting monitor",
		"poll_interval", m.pollInterval,
		"batch_size", m.batchSize,
	)

	if m.conn != nil {
		m.runConsumer = mq.NewConsumer(m.conn, m.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueRunsRequested),
			Handler:  m.handleRunRequested,
			Prefetch: 1,
		})

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.runConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("run consumer error", "error", err)
			}
		}()
	}

	// Запускаем polling
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pollLoop(ctx)
	}()

	m.logger.Info("monitor started")
	return nil
}

// Stop останавливает Monitor.
func (m *Monitor) Stop() {
	m.logger.Info("stopping monitor...")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.runConsumer != nil {
		m.runConsumer.Stop()
	}

	// Ждём завершения горутин
	m.wg.Wait()

	m.logger.Info("monitor stopped")
}

// pollLoop — цикл polling для fallback.
func (m *Monitor) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем runs созданные пока были выключены)
	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (m *Monitor) poll(ctx context.Context) {
	runs, err := m.runRepo.ListPending(ctx, m.batchSize)
	if err != nil {
		m.logger.Error("failed to list pending runs", "error", err)
		return
	}

	if len(runs) == 0 {
		return
	}

	m.logger.Debug("poll found pending runs", "count", len(runs))

	for i := range runs {
		run := &runs[i]

		if m.isRunActive(run.ID) {
			continue
		}

		if err := m.processRun(ctx, run.ID); err != nil {
			m.logger.Error("failed to process run from poll",
				"run_id", run.ID,
				"error", err,
			)
		}
	}
}

// isRunActive проверяет, находится ли run в обработке.
func (m *Monitor) isRunActive(runID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.activeRuns[runID]
	return exists
}

// addActiveRun добавляет run в активные.
func (m *Monitor) addActiveRun(runID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.activeRuns[runID]; exists {
		return ErrRunAlreadyActive
	}

	m.activeRuns[runID] = struct{}{}
	return nil
}

// removeActiveRun удаляет run из активных.
func (m *Monitor) removeActiveRun(runID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.activeRuns, runID)
}

// ActiveRunsCount возвращает количество активных runs.
func (m *Monitor) ActiveRunsCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeRuns)
}
