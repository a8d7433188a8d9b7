package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/platform"
	"github.com/shaiso/Qlikwatch/internal/state"
	"github.com/shaiso/Qlikwatch/internal/telemetry"
)

// defaultMaxPages ограничивает пагинацию, если конфигурация не задала
// свой предел.
const defaultMaxPages = 10

// Branch — pipeline одной платформы: login → extract → classify.
//
// Обе ветки структурно идентичны и отличаются только набором
// коллабораторов из platform.BranchConfig. Ветка пишет исключительно
// в своё подсостояние state.Branch и в общий журнал.
//
// Машина состояний ветки:
//
//	PENDING → RUNNING → {SUCCEEDED | FAILED}
//
// RUNNING может зацикливаться на повторах (ограничено retry-бюджетом);
// терминальный статус останавливает все дальнейшие шаги ветки.
type Branch struct {
	cfg      platform.BranchConfig
	retry    *RetryController
	maxPages int
	logger   *slog.Logger
}

// NewBranch создаёт ветку по конфигурации.
func NewBranch(cfg platform.BranchConfig, retry *RetryController, maxPages int, logger *slog.Logger) *Branch {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Branch{
		cfg:      cfg,
		retry:    retry,
		maxPages: maxPages,
		logger:   telemetry.WithPlatform(logger, string(cfg.Platform)),
	}
}

// Platform возвращает платформу ветки.
func (b *Branch) Platform() domain.Platform {
	return b.cfg.Platform
}

// Run прогоняет ветку до терминального статуса.
//
// Никогда не возвращает ошибку наружу: любой исход записывается
// в состояние, по которому после барьера принимает решения агрегатор.
func (b *Branch) Run(ctx context.Context, st *state.RunState) {
	br := st.Branch(b.cfg.Platform)
	st.Logf("%s: branch started", b.cfg.Platform)

	if err := b.authenticate(ctx, st, br); err != nil {
		b.fail(st, br, fmt.Errorf("login: %w", err))
		return
	}
	br.SetStatus(domain.BranchRunning)
	st.Logf("%s: authenticated", b.cfg.Platform)

	if err := b.extract(ctx, st, br); err != nil {
		b.fail(st, br, fmt.Errorf("extract: %w", err))
		return
	}
	st.Logf("%s: extracted %d records", b.cfg.Platform, len(br.Raw()))

	if err := b.classify(ctx, st, br); err != nil {
		b.fail(st, br, fmt.Errorf("classify: %w", err))
		return
	}

	br.SetStatus(domain.BranchSucceeded)
	telemetry.BranchesTotal.WithLabelValues(string(b.cfg.Platform), string(domain.BranchSucceeded)).Inc()
	st.Logf("%s: branch succeeded (%d groups)", b.cfg.Platform, len(br.Reports()))
	b.logger.Info("branch succeeded",
		"groups", len(br.Reports()),
		"retries_used", br.RetryCount(),
	)
}

// authenticate выполняет login с повторами и сохраняет учётные данные.
// Отчёты групп этот шаг не трогает.
func (b *Branch) authenticate(ctx context.Context, st *state.RunState, br *state.Branch) error {
	return b.retry.Do(ctx, st, br, "login", func(ctx context.Context) error {
		creds, err := b.cfg.Auth.Login(ctx)
		if err != nil {
			return err
		}
		br.SetCredentials(creds)
		return nil
	})
}

// extract постранично извлекает записи за сегодня.
//
// Повторы отдельной страницы не перезапускают login. Исключение —
// платформа отвергла сессию (ErrSessionExpired): тогда ветка
// эскалирует в повторный login и продолжает извлечение, расходуя
// тот же retry-бюджет.
func (b *Branch) extract(ctx context.Context, st *state.RunState, br *state.Branch) error {
	for {
		err := b.extractAll(ctx, st, br)
		if err == nil {
			return nil
		}
		if !errors.Is(err, platform.ErrSessionExpired) {
			return err
		}

		st.Logf("%s: session expired, re-authenticating", b.cfg.Platform)
		if !br.ConsumeRetry(st.MaxRetries) {
			return err
		}
		if aerr := b.authenticate(ctx, st, br); aerr != nil {
			return aerr
		}
		st.Logf("%s: re-authenticated", b.cfg.Platform)
	}
}

// extractAll собирает все страницы, пока адаптер сообщает о следующих.
func (b *Branch) extractAll(ctx context.Context, st *state.RunState, br *state.Branch) error {
	creds := br.Credentials()
	if creds == nil {
		return platform.ErrNoCredentials
	}

	var all []domain.TaskRecord
	for page := 0; page < b.maxPages; page++ {
		var records []domain.TaskRecord
		var more bool

		err := b.retry.Do(ctx, st, br, "extract", func(ctx context.Context) error {
			var err error
			records, more, err = b.cfg.Extractor.ExtractPage(ctx, creds, page)
			return err
		})
		if err != nil {
			return err
		}

		all = append(all, records...)
		if !more {
			break
		}
	}

	br.SetRaw(all)
	return nil
}

// classify распределяет записи по группам и классифицирует каждую.
//
// Группы обходятся в стабильном порядке. Пустая группа получает NO_RUN
// без обращения к классификатору. При исчерпании повторов уже
// классифицированные группы сохраняются — теряется только хвост.
func (b *Branch) classify(ctx context.Context, st *state.RunState, br *state.Branch) error {
	parts := b.cfg.Grouper.Partition(br.Raw())

	groups := make([]string, 0, len(parts))
	for g := range parts {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		records := parts[group]
		if len(records) == 0 {
			br.PutReport(group, domain.GroupReport{
				Status:  domain.GroupNoRun,
				Summary: "No execution records found for today.",
			})
			continue
		}

		var rep domain.GroupReport
		err := b.retry.Do(ctx, st, br, "classify", func(ctx context.Context) error {
			var err error
			rep, err = b.cfg.Classifier.Classify(ctx, group, records)
			return err
		})
		if err != nil {
			return fmt.Errorf("group %q: %w", group, err)
		}

		br.PutReport(group, rep)
		st.Logf("%s: group %q classified as %s", b.cfg.Platform, group, rep.Status)
	}
	return nil
}

// fail переводит ветку в терминальный FAILED.
func (b *Branch) fail(st *state.RunState, br *state.Branch, err error) {
	br.SetError(err.Error())
	br.SetStatus(domain.BranchFailed)
	telemetry.BranchesTotal.WithLabelValues(string(b.cfg.Platform), string(domain.BranchFailed)).Inc()
	st.Logf("%s: branch failed: %v", b.cfg.Platform, err)
	b.logger.Error("branch failed",
		"error", err,
		"retries_used", br.RetryCount(),
	)
}
