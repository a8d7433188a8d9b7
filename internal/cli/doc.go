// Package cli реализует инструмент командной строки Qlikwatch.
//
// # Обзор
//
// CLI — утилита оператора: запросить немедленную проверку, посмотреть
// историю runs, вердикты по процессам и журнал выполнения. Работает
// напрямую с БД runner-а; RabbitMQ используется best-effort для
// немедленного подхвата запроса.
//
// # Ключевые компоненты
//
// ## Deps
//
// Ленивые зависимости команд: подключение к Postgres и (опционально)
// RabbitMQ создаются после парсинга PersistentFlags.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: qlikwatch run list --json | jq .
//
// ## Commands
//
//   - run now  — запросить немедленную проверку
//   - run list — история runs
//   - run show — детали run и вердикты по процессам
//   - run logs — журнал выполнения run
package cli
