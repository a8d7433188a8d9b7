// Qlikwatch Runner — сервис мониторинга отчётных платформ.
//
// Runner:
//   - Создаёт ежедневные runs по расписанию (leader election через
//     pg_try_advisory_lock — в кластере тикает только один процесс)
//   - Получает запросы немедленной проверки из RabbitMQ
//   - Прогоняет обе платформы (console, publisher) через движок
//   - Публикует HTML-отчёт и событие report.completed
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Qlikwatch/internal/artifact"
	"github.com/shaiso/Qlikwatch/internal/classify"
	"github.com/shaiso/Qlikwatch/internal/config"
	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/engine"
	"github.com/shaiso/Qlikwatch/internal/monitor"
	"github.com/shaiso/Qlikwatch/internal/mq"
	"github.com/shaiso/Qlikwatch/internal/platform"
	"github.com/shaiso/Qlikwatch/internal/repo"
	"github.com/shaiso/Qlikwatch/internal/report"
	"github.com/shaiso/Qlikwatch/internal/scheduler"
	"github.com/shaiso/Qlikwatch/internal/telemetry"
)

const schedLockKey int64 = 734031

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting qlikwatch-runner")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Конфигурация
	cfgPath := os.Getenv("QLIKWATCH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", cfgPath, "platforms", len(cfg.Platforms))

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	runRepo := repo.NewRunRepo(pool)
	reportRepo := repo.NewReportRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		} else {
			logger.Debug("topology ready\n" + mq.TopologyInfo())
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Реестр платформ
	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Error("failed to build platform registry", "error", err)
		os.Exit(1)
	}

	// Рендерер отчётов
	renderer, err := report.NewHTMLRenderer(cfg.Report.OutputDir)
	if err != nil {
		logger.Error("failed to create renderer", "error", err)
		os.Exit(1)
	}

	// Движок
	eng, err := engine.New(engine.Config{
		Registry: registry,
		Renderer: renderer,
		Policy: engine.RetryPolicy{
			Backoff:      cfg.Retry.Backoff,
			InitialDelay: cfg.InitialDelay(),
			MaxDelay:     cfg.MaxDelay(),
		},
		StepTimeout: cfg.StepTimeout(),
		MaxPages:    cfg.MaxPages,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	// Хранилище артефактов (опционально)
	var store *artifact.Store
	if cfg.Artifact.Enabled {
		store, err = artifact.NewStore(artifact.Config{
			Endpoint:  cfg.Artifact.Endpoint,
			AccessKey: os.Getenv(cfg.Artifact.AccessKeyEnv),
			SecretKey: os.Getenv(cfg.Artifact.SecretKeyEnv),
			Bucket:    cfg.Artifact.Bucket,
			Region:    cfg.Artifact.Region,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			logger.Error("failed to create artifact store", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn("failed to ensure artifact bucket", "error", err)
		}
	}

	// Создаём monitor
	mon := monitor.New(monitor.Config{
		RunRepo:    runRepo,
		ReportRepo: reportRepo,
		Engine:     eng,
		MaxRetries: cfg.MaxRetries,
		Store:      store,
		Publisher:  publisher,
		Conn:       mqConn,
		Logger:     logger,
	})

	if err := mon.Start(ctx); err != nil {
		logger.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}

	// Планировщик ежедневных runs
	sched, err := scheduler.New(scheduler.Config{
		Schedule:  cfg.Schedule,
		RunRepo:   runRepo,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	logger.Info("scheduler ready", "next_due", sched.NextDue())

	// scheduler loop
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("scheduler lock failed", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				if err := sched.Tick(ctx); err != nil {
					logger.Error("scheduler tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8084"
	if v := os.Getenv("RUNNER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	mon.Stop()
	logger.Info("qlikwatch-runner stopped")
}

// buildRegistry собирает реестр веток из конфигурации.
//
// Для каждой платформы: HTTP-клиент её scraper-агента (login + extract),
// группировка (теги для console, префиксы имён для publisher)
// и классификатор по выбранному режиму.
func buildRegistry(cfg *config.Config) (*platform.Registry, error) {
	registry := platform.NewRegistry()

	for _, p := range domain.Platforms {
		pc, ok := cfg.Platforms[string(p)]
		if !ok {
			return nil, fmt.Errorf("platform %s is not configured", p)
		}

		agent := platform.NewAgentClient(pc.AgentURL, cfg.StepTimeout())

		var grouper platform.Grouper
		var normalize classify.Normalizer
		switch p {
		case domain.PlatformConsole:
			grouper = platform.NewTagGrouper(pc.Monitored)
			normalize = classify.NormalizeConsole
		case domain.PlatformPublisher:
			grouper = platform.NewPrefixGrouper(pc.Monitored)
			normalize = classify.NormalizePublisher
		}

		var classifier platform.Classifier
		switch cfg.Classifier.Mode {
		case "llm":
			classifier = classify.NewLLM(classify.LLMConfig{
				Endpoint: cfg.Classifier.Endpoint,
				Model:    cfg.Classifier.Model,
				APIKey:   cfg.Classifier.APIKey(),
				Timeout:  cfg.StepTimeout(),
			})
		default:
			classifier = classify.NewRules(normalize)
		}

		err := registry.Register(platform.BranchConfig{
			Platform:   p,
			Auth:       agent,
			Extractor:  agent,
			Classifier: classifier,
			Grouper:    grouper,
		})
		if err != nil {
			return nil, err
		}
	}

	return registry, nil
}
