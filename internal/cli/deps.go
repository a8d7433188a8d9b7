package cli

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Qlikwatch/internal/mq"
	"github.com/shaiso/Qlikwatch/internal/repo"
)

// Deps — зависимости команд.
//
// Создаются лениво (после парсинга PersistentFlags): подключение к БД
// обязательно, RabbitMQ опционален — без него запрошенный run
// подхватится runner-ом через polling.
type Deps struct {
	RunRepo    *repo.RunRepo
	ReportRepo *repo.ReportRepo
	Publisher  *mq.Publisher

	pool *pgxpool.Pool
	conn *mq.Connection
}

// NewDeps подключается к БД и (best-effort) к RabbitMQ.
func NewDeps(ctx context.Context, amqpURL string, logger *slog.Logger) (*Deps, error) {
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, err
	}

	d := &Deps{
		RunRepo:    repo.NewRunRepo(pool),
		ReportRepo: repo.NewReportRepo(pool),
		pool:       pool,
	}

	if amqpURL != "" {
		conn, err := mq.NewConnection(amqpURL, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, runner will pick the run up via polling", "error", err)
		} else {
			d.conn = conn
			d.Publisher = mq.NewPublisher(conn, logger)
		}
	}

	return d, nil
}

// Close освобождает соединения.
func (d *Deps) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
