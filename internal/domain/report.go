package domain

import "time"

// TaskRecord — одна запись, извлечённая со страницы платформы.
//
// Поля заполняются по-разному в зависимости от платформы:
// Tags и Disabled имеют смысл только для console,
// Progress — только для publisher.
type TaskRecord struct {
	// Name — имя задачи.
	Name string `json:"name"`

	// Status — сырой статус в словаре платформы
	// (console: "Success", "Failed", "Never started", ...;
	// publisher: "Completed", "Running", "Aborted", ...).
	Status string `json:"status"`

	// Tags — строка тегов задачи (console). По вхождению
	// отслеживаемого тега задача попадает в группу процесса.
	Tags string `json:"tags,omitempty"`

	// Disabled — задача выключена и не влияет на статус процесса.
	// Отсутствие признака трактуется как включённая задача.
	Disabled bool `json:"disabled,omitempty"`

	// Progress — процент выполнения 0–100 (publisher).
	Progress int `json:"progress,omitempty"`

	// LastExecution — время последнего запуска.
	LastExecution time.Time `json:"last_execution"`
}

// GroupReport — результат классификации одной группы процессов.
//
// Иммутабелен после записи: шаг классификации создаёт отчёт один раз,
// дальше он только читается агрегатором и рендерером.
type GroupReport struct {
	// Status — статус группы по строгой иерархии.
	Status GroupStatus `json:"status"`

	// Summary — краткое пояснение (одно предложение).
	Summary string `json:"summary"`

	// FailedTasks — имена упавших задач.
	FailedTasks []string `json:"failed_tasks,omitempty"`

	// RunningTasks — имена задач в процессе выполнения.
	RunningTasks []string `json:"running_tasks,omitempty"`

	// TaskCount — количество задач, учтённых при классификации.
	TaskCount int `json:"task_count"`
}

// PlatformSummary — сводка по одной платформе в комбинированном отчёте.
type PlatformSummary struct {
	// Groups — отчёты по группам процессов (имя группы → отчёт).
	Groups map[string]GroupReport `json:"groups"`

	// StatusCounts — количество групп в каждом статусе.
	StatusCounts map[GroupStatus]int `json:"status_counts"`

	// TotalGroups — общее число групп.
	TotalGroups int `json:"total_groups"`
}

// NewPlatformSummary строит сводку по набору отчётов групп.
func NewPlatformSummary(groups map[string]GroupReport) PlatformSummary {
	counts := make(map[GroupStatus]int, len(groups))
	for _, rep := range groups {
		counts[rep.Status]++
	}
	return PlatformSummary{
		Groups:       groups,
		StatusCounts: counts,
		TotalGroups:  len(groups),
	}
}

// CombinedReport — единый вердикт по обеим платформам.
//
// Создаётся агрегатором строго после того, как обе ветки достигли
// терминального статуса. Записывается ровно один раз за run.
type CombinedReport struct {
	// OverallStatus — итоговый статус по иерархии приоритетов.
	OverallStatus GroupStatus `json:"overall_status"`

	// Platforms — сводки по платформам, чьи ветки завершились успешно.
	Platforms map[Platform]PlatformSummary `json:"platforms"`

	// Excluded — платформы, чьи ветки упали и не дали данных.
	Excluded []Platform `json:"excluded,omitempty"`

	// Partial — true, если хотя бы одна платформа исключена.
	Partial bool `json:"partial,omitempty"`

	// Summary — краткая сводка для конечного отчёта.
	Summary string `json:"summary"`

	// GeneratedAt — время агрегации.
	GeneratedAt time.Time `json:"generated_at"`
}

// GroupStatuses возвращает статусы всех групп всех включённых платформ.
func (r *CombinedReport) GroupStatuses() []GroupStatus {
	var statuses []GroupStatus
	for _, summary := range r.Platforms {
		for _, rep := range summary.Groups {
			statuses = append(statuses, rep.Status)
		}
	}
	return statuses
}
