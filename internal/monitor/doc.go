// Package monitor управляет выполнением мониторинговых runs.
//
// Monitor отвечает за:
//   - Получение запросов проверок из очереди RabbitMQ
//   - Подхват pending runs из БД (polling fallback)
//   - Прогон run через движок (обе платформы, барьер, агрегация)
//   - Загрузку артефакта отчёта в объектное хранилище
//   - Сохранение снимка состояния и отчётов групп для аудита
//   - Финализацию run (SUCCEEDED/FAILED) и публикацию report.completed
//
// Monitor — связующий слой runner-а: всю семантику проверки выполняет
// engine, здесь только жизненный цикл run и персистентность.
package monitor
