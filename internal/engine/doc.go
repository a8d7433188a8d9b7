// Package engine содержит ядро мониторингового run.
//
// Включает:
//   - engine.go    — координация run: параллельные ветки, барьер,
//     агрегация, единственный вызов рендера отчёта
//   - branch.go    — pipeline одной платформы: login → extract → classify
//   - retry.go     — контроллер повторов с ограниченным бюджетом и backoff
//   - aggregate.go — сведение отчётов групп в единый вердикт
//
// Топология фиксированная: две ветки стартуют конкурентно, встречаются
// на барьере, затем один раз выполняется агрегация и эмиссия отчёта.
// Ошибки не пересекают границы веток как значения control flow — они
// записываются в разделяемое состояние, и решения после барьера
// принимаются только по данным состояния.
package engine
