// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - run.requested     — запрошена немедленная проверка
//   - report.completed  — отчёт по run готов
//
// Exchanges:
//   - qlikwatch.runs     — запросы проверок
//   - qlikwatch.reports  — события готовых отчётов
//   - qlikwatch.dlq      — dead letter queue
package mq
