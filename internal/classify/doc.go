// Package classify содержит реализации коллаборатора классификации.
//
// Включает:
//   - rules.go — детерминированная классификация по строгой иерархии
//     статусов (используется по умолчанию и в тестах)
//   - llm.go   — клиент внешнего LLM-сервиса (chat completions API)
//
// Обе реализации удовлетворяют platform.Classifier и выдают статус
// группы по одной и той же иерархии: FAILED > RUNNING > PENDING > SUCCESS.
package classify
