package domain

// GroupStatus — агрегированный статус группы процессов (или всего run).
//
// Иерархия приоритетов (сверху вниз, верхний выигрывает):
//
//	FAILED > RUNNING > PENDING > SUCCESS > NO_RUN
//
// Одна и та же иерархия применяется дважды: сначала на уровне группы
// (из статусов отдельных задач), затем на уровне run (из статусов групп).
type GroupStatus string

const (
	// GroupFailed — хотя бы одна задача группы упала.
	GroupFailed GroupStatus = "FAILED"

	// GroupRunning — падений нет, но есть активное выполнение.
	GroupRunning GroupStatus = "RUNNING"

	// GroupPending — падений и активности нет, задачи в очереди.
	GroupPending GroupStatus = "PENDING"

	// GroupSuccess — все задачи группы завершились успешно.
	GroupSuccess GroupStatus = "SUCCESS"

	// GroupNoRun — за проверяемый период не было ни одного запуска.
	GroupNoRun GroupStatus = "NO_RUN"
)

// Severity возвращает приоритет статуса. Чем выше число, тем "хуже"
// статус и тем раньше он выигрывает при агрегации.
func (s GroupStatus) Severity() int {
	switch s {
	case GroupFailed:
		return 4
	case GroupRunning:
		return 3
	case GroupPending:
		return 2
	case GroupSuccess:
		return 1
	case GroupNoRun:
		return 0
	default:
		return -1
	}
}

// WorstStatus сворачивает набор статусов групп в один по строгой иерархии.
//
// NO_RUN не участвует в сканировании: группа без запусков не портит
// вердикт остальных (SUCCESS + NO_RUN = SUCCESS). Пустой набор или набор
// из одних NO_RUN даёт NO_RUN.
func WorstStatus(statuses []GroupStatus) GroupStatus {
	var anyRunning, anyPending, anySuccess bool

	for _, s := range statuses {
		switch s {
		case GroupFailed:
			return GroupFailed
		case GroupRunning:
			anyRunning = true
		case GroupPending:
			anyPending = true
		case GroupSuccess:
			anySuccess = true
		}
	}

	switch {
	case anyRunning:
		return GroupRunning
	case anyPending:
		return GroupPending
	case anySuccess:
		return GroupSuccess
	default:
		return GroupNoRun
	}
}

// TaskState — нормализованное состояние отдельной задачи.
//
// На уровне задач статуса NO_RUN не существует: если запись есть,
// задача в каком-то из четырёх состояний.
type TaskState string

const (
	TaskFailed  TaskState = "Failed"
	TaskRunning TaskState = "Running"
	TaskPending TaskState = "Pending"
	TaskSuccess TaskState = "Success"
)

// StatusFromTasks выводит статус группы из состояний её задач
// по той же иерархии. Пустой набор означает отсутствие запусков.
func StatusFromTasks(states []TaskState) GroupStatus {
	if len(states) == 0 {
		return GroupNoRun
	}

	var anyRunning, anyPending bool
	for _, st := range states {
		switch st {
		case TaskFailed:
			return GroupFailed
		case TaskRunning:
			anyRunning = true
		case TaskPending:
			anyPending = true
		}
	}

	switch {
	case anyRunning:
		return GroupRunning
	case anyPending:
		return GroupPending
	default:
		return GroupSuccess
	}
}
