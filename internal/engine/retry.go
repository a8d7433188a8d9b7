package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shaiso/Qlikwatch/internal/platform"
	"github.com/shaiso/Qlikwatch/internal/state"
	"github.com/shaiso/Qlikwatch/internal/telemetry"
)

// RetryPolicy — политика повторов для удалённых шагов.
type RetryPolicy struct {
	// Backoff — стратегия задержки: "fixed" или "exponential".
	Backoff string

	// InitialDelay — задержка перед первым повтором (default: 1s).
	InitialDelay time.Duration

	// MaxDelay — потолок задержки (default: 30s).
	MaxDelay time.Duration
}

// delay вычисляет задержку перед повтором номер attempt (с единицы).
func (p RetryPolicy) delay(attempt int) time.Duration {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}

	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var d time.Duration
	switch p.Backoff {
	case "exponential":
		// d = initial * 2^(attempt-1)
		d = initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d > maxDelay {
				break
			}
		}
	default:
		// "fixed" или не указано
		d = initial
	}

	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// RetryController оборачивает удалённый шаг ограниченными повторами.
//
// Бюджет повторов общий на ветку: счётчик живёт в state.Branch,
// расходуется каждым неудачным повтором любого шага и сбрасывается
// только при создании нового run. Шаг, падающий с самого старта run,
// выполняется ровно maxRetries+1 раз.
//
// Ретраятся только временные ошибки (platform.IsTransient); фатальные
// всплывают сразу, не расходуя бюджет. Финальная ошибка возвращается
// вызывающему как есть.
type RetryController struct {
	policy      RetryPolicy
	stepTimeout time.Duration
	logger      *slog.Logger

	// sleep подменяется в тестах для мгновенных повторов.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryController создаёт контроллер повторов.
func NewRetryController(policy RetryPolicy, stepTimeout time.Duration, logger *slog.Logger) *RetryController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryController{
		policy:      policy,
		stepTimeout: stepTimeout,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// Do выполняет шаг с повторами в рамках бюджета ветки.
//
// Каждая неудачная попытка записывает ошибку в состояние ветки и
// добавляет запись в журнал run с номером попытки. ErrSessionExpired
// не ретраится здесь — он возвращается ветке для эскалации в login.
func (c *RetryController) Do(ctx context.Context, st *state.RunState, br *state.Branch, step string, fn func(ctx context.Context) error) error {
	attempt := 1
	for {
		err := c.runOnce(ctx, fn)
		if err == nil {
			br.ClearError()
			telemetry.StepAttemptsTotal.WithLabelValues(string(br.Platform()), step, "ok").Inc()
			return nil
		}

		telemetry.StepAttemptsTotal.WithLabelValues(string(br.Platform()), step, "error").Inc()
		br.SetError(err.Error())
		st.Logf("%s: %s attempt %d failed: %v", br.Platform(), step, attempt, err)

		if errors.Is(err, platform.ErrSessionExpired) {
			// Эскалация в повторный login — решает ветка, не контроллер.
			return err
		}
		if !platform.IsTransient(err) {
			c.logger.Warn("fatal step error, not retrying",
				"platform", br.Platform(),
				"step", step,
				"error", err,
			)
			return err
		}
		if !br.ConsumeRetry(st.MaxRetries) {
			c.logger.Warn("retry budget exhausted",
				"platform", br.Platform(),
				"step", step,
				"attempts", attempt,
			)
			return err
		}

		d := c.policy.delay(attempt)
		c.logger.Debug("retrying step",
			"platform", br.Platform(),
			"step", step,
			"attempt", attempt,
			"delay", d,
		)
		if err := c.sleep(ctx, d); err != nil {
			return err
		}
		attempt++
	}
}

// runOnce выполняет одну попытку с таймаутом шага.
func (c *RetryController) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// sleepCtx ждёт d с учётом отмены контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
