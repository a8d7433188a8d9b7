// Package scheduler создаёт ежедневные runs по cron-расписанию.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, createRun)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Schedule:  cfg.Schedule,
//	    RunRepo:   runRepo,
//	    Publisher: publisher,  // опционально
//	    Logger:    logger,
//	})
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// Дубликаты исключаются ключом идемпотентности "{schedule}_{due_unix}":
// рестарт процесса внутри одного срабатывания не создаст второй run.
package scheduler
