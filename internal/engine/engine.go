package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/platform"
	"github.com/shaiso/Qlikwatch/internal/state"
	"github.com/shaiso/Qlikwatch/internal/telemetry"
)

// Renderer превращает комбинированный отчёт в артефакт и возвращает
// путь к нему. Вызывается не более одного раза за run.
type Renderer interface {
	Render(ctx context.Context, rep *domain.CombinedReport) (string, error)
}

// Config — конфигурация движка.
type Config struct {
	// Registry — зарегистрированные ветки платформ.
	Registry *platform.Registry

	// Renderer — рендерер итогового отчёта.
	Renderer Renderer

	// Policy — политика backoff для повторов шагов.
	Policy RetryPolicy

	// StepTimeout — таймаут одной попытки шага (default: 60s).
	StepTimeout time.Duration

	// MaxPages — предел пагинации при извлечении (default: 10).
	MaxPages int

	Logger *slog.Logger
}

// Result — итог выполнения run.
type Result struct {
	// Report — комбинированный отчёт. Заполнен всегда, в том числе
	// когда ни одна платформа не дала данных.
	Report *domain.CombinedReport

	// ArtifactPath — путь к сгенерированному артефакту
	// ("" если рендерер не вызывался).
	ArtifactPath string
}

// Engine прогоняет один мониторинговый run: обе ветки конкурентно,
// барьер, агрегация, отчёт.
//
// Топология фиксирована — это не общий DAG-оркестратор. Каждая ветка
// изолирована: её сбои записываются как данные и не прерывают соседку.
type Engine struct {
	cfg      Config
	branches []*Branch
	logger   *slog.Logger
}

// New создаёт движок по конфигурации.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil || cfg.Registry.Size() == 0 {
		return nil, ErrNoBranches
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("engine: renderer is required")
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	retry := NewRetryController(cfg.Policy, cfg.StepTimeout, cfg.Logger)

	branches := make([]*Branch, 0, cfg.Registry.Size())
	for _, bc := range cfg.Registry.All() {
		branches = append(branches, NewBranch(bc, retry, cfg.MaxPages, cfg.Logger))
	}

	return &Engine{
		cfg:      cfg,
		branches: branches,
		logger:   cfg.Logger,
	}, nil
}

// Execute выполняет run до конца.
//
// Ветки стартуют одновременно и бегут до терминального статуса;
// точка синхронизации одна — барьер перед агрегацией. Итоговый
// вердикт записывается в состояние ровно один раз.
//
// Возвращает ErrNoData, если обе ветки упали: отчёт в Result при этом
// заполнен, но рендерер не вызывается. Ошибка рендеринга оборачивается
// в ErrEmitFailed и фатальна для run.
func (e *Engine) Execute(ctx context.Context, st *state.RunState) (*Result, error) {
	logger := telemetry.WithRunID(e.logger, st.RunID.String())
	logger.Info("run started", "branches", len(e.branches))

	var wg sync.WaitGroup
	for _, b := range e.branches {
		wg.Add(1)
		go func(b *Branch) {
			defer wg.Done()
			b.Run(ctx, st)
		}(b)
	}
	wg.Wait()

	if !st.AllTerminal() {
		// Недостижимо при корректных ветках; фиксируем на случай регрессий.
		return nil, fmt.Errorf("engine: branches not terminal after barrier")
	}

	rep := Aggregate(st, time.Now().UTC())
	if err := st.SetOverall(rep.OverallStatus); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	telemetry.SetOverallStatus(string(rep.OverallStatus))
	st.Logf("aggregated: overall=%s partial=%v", rep.OverallStatus, rep.Partial)

	if len(rep.Platforms) == 0 {
		logger.Error("run produced no data, report suppressed",
			"excluded", rep.Excluded,
		)
		st.Logf("report suppressed: no data from any platform")
		return &Result{Report: rep}, ErrNoData
	}

	path, err := e.cfg.Renderer.Render(ctx, rep)
	if err != nil {
		return &Result{Report: rep}, fmt.Errorf("%w: %v", ErrEmitFailed, err)
	}
	st.Logf("report rendered: %s", path)
	logger.Info("run finished",
		"overall", rep.OverallStatus,
		"partial", rep.Partial,
		"artifact", path,
	)

	return &Result{Report: rep, ArtifactPath: path}, nil
}
