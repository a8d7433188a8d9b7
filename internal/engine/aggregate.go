package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/state"
)

// Aggregate сворачивает состояние обеих веток в комбинированный отчёт.
//
// Вызывается строго после барьера: обе ветки терминальны, конкурентных
// записей в состояние больше нет. Упавшая ветка данных не даёт —
// её платформа попадает в Excluded, отчёт помечается Partial.
//
// Если обе ветки упали, отчёт получает статус FAILED и фиксирует
// отсутствие данных; решение об отправке принимает вызывающий.
func Aggregate(st *state.RunState, now time.Time) *domain.CombinedReport {
	rep := &domain.CombinedReport{
		Platforms:   make(map[domain.Platform]domain.PlatformSummary),
		GeneratedAt: now,
	}

	for _, p := range domain.Platforms {
		br := st.Branch(p)
		if br == nil {
			continue
		}
		if br.Status() != domain.BranchSucceeded {
			rep.Excluded = append(rep.Excluded, p)
			continue
		}
		rep.Platforms[p] = domain.NewPlatformSummary(br.Reports())
	}
	rep.Partial = len(rep.Excluded) > 0

	if len(rep.Platforms) == 0 {
		rep.OverallStatus = domain.GroupFailed
		rep.Summary = "No data available from either platform."
		return rep
	}

	rep.OverallStatus = domain.WorstStatus(rep.GroupStatuses())
	rep.Summary = buildSummary(rep)
	return rep
}

// buildSummary собирает однострочную сводку для конечного отчёта:
// вердикт, проблемные группы, группы без запусков и исключённые платформы.
func buildSummary(rep *domain.CombinedReport) string {
	var parts []string

	switch rep.OverallStatus {
	case domain.GroupSuccess:
		parts = append(parts, "All monitored processes completed successfully.")
	case domain.GroupFailed:
		parts = append(parts, fmt.Sprintf("Failures detected: %s.", listGroups(rep, domain.GroupFailed)))
	case domain.GroupRunning:
		parts = append(parts, fmt.Sprintf("Still running: %s.", listGroups(rep, domain.GroupRunning)))
	case domain.GroupPending:
		parts = append(parts, fmt.Sprintf("Queued, not yet started: %s.", listGroups(rep, domain.GroupPending)))
	case domain.GroupNoRun:
		parts = append(parts, "No process executions found for today.")
	}

	if noRun := listGroups(rep, domain.GroupNoRun); noRun != "" && rep.OverallStatus != domain.GroupNoRun {
		parts = append(parts, fmt.Sprintf("No runs today: %s.", noRun))
	}

	if len(rep.Excluded) > 0 {
		names := make([]string, len(rep.Excluded))
		for i, p := range rep.Excluded {
			names[i] = string(p)
		}
		parts = append(parts, fmt.Sprintf("No data from: %s.", strings.Join(names, ", ")))
	}

	return strings.Join(parts, " ")
}

// listGroups перечисляет группы в заданном статусе как "platform/group",
// в стабильном порядке.
func listGroups(rep *domain.CombinedReport, status domain.GroupStatus) string {
	var names []string
	for _, p := range domain.Platforms {
		summary, ok := rep.Platforms[p]
		if !ok {
			continue
		}
		for group, gr := range summary.Groups {
			if gr.Status == status {
				names = append(names, string(p)+"/"+group)
			}
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
