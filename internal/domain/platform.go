package domain

// Platform — отслеживаемая платформа отчётности.
//
// Система мониторит две независимые платформы:
//   - console   — консоль управления задачами (QMC)
//   - publisher — система публикации отчётов (NPrinting)
//
// Каждая платформа проходит свой pipeline: login → extract → classify.
type Platform string

const (
	// PlatformConsole — консоль управления задачами.
	PlatformConsole Platform = "console"

	// PlatformPublisher — система публикации отчётов.
	PlatformPublisher Platform = "publisher"
)

// Platforms — все отслеживаемые платформы в фиксированном порядке.
// Порядок важен только для детерминированного вывода в отчётах и логах.
var Platforms = []Platform{PlatformConsole, PlatformPublisher}

// BranchStatus — статус ветки pipeline для одной платформы.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Переходы строго монотонные: терминальный статус не может быть
// перезаписан, RUNNING не может вернуться в PENDING.
type BranchStatus string

const (
	// BranchPending — ветка создана, login ещё не выполнялся.
	BranchPending BranchStatus = "PENDING"

	// BranchRunning — ветка в процессе выполнения (после успешного login).
	BranchRunning BranchStatus = "RUNNING"

	// BranchSucceeded — все шаги ветки завершились успешно.
	BranchSucceeded BranchStatus = "SUCCEEDED"

	// BranchFailed — ветка упала после исчерпания retry-бюджета.
	BranchFailed BranchStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (ветка завершена).
func (s BranchStatus) IsTerminal() bool {
	switch s {
	case BranchSucceeded, BranchFailed:
		return true
	default:
		return false
	}
}

// rank возвращает порядковый номер статуса для проверки монотонности.
func (s BranchStatus) rank() int {
	switch s {
	case BranchPending:
		return 0
	case BranchRunning:
		return 1
	case BranchSucceeded, BranchFailed:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo проверяет, допустим ли переход в статус next.
// Терминальные статусы менять нельзя, откат назад запрещён.
func (s BranchStatus) CanTransitionTo(next BranchStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}
