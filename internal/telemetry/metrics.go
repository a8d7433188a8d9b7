package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики мониторингового сервиса.
var (
	// RunsTotal — количество завершённых runs по исходу.
	// outcome: SUCCEEDED | FAILED; partial: "true" | "false".
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qlikwatch_runs_total",
		Help: "Completed monitoring runs by outcome.",
	}, []string{"outcome", "partial"})

	// RunDuration — продолжительность run от старта веток до публикации.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qlikwatch_run_duration_seconds",
		Help:    "End-to-end monitoring run duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	// StepAttemptsTotal — попытки удалённых шагов по платформе и шагу.
	// outcome: ok | error.
	StepAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qlikwatch_step_attempts_total",
		Help: "Remote step attempts by platform, step and outcome.",
	}, []string{"platform", "step", "outcome"})

	// BranchesTotal — терминальные статусы веток по платформе.
	BranchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qlikwatch_branches_total",
		Help: "Branch terminal states by platform and status.",
	}, []string{"platform", "status"})

	// OverallStatus — итоговый вердикт последнего run (gauge по статусу:
	// 1 у текущего статуса, 0 у остальных).
	OverallStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qlikwatch_overall_status",
		Help: "Overall verdict of the most recent run (1 for the current status).",
	}, []string{"status"})
)

// SetOverallStatus выставляет gauge итогового вердикта.
func SetOverallStatus(current string) {
	for _, s := range []string{"FAILED", "RUNNING", "PENDING", "SUCCESS", "NO_RUN"} {
		v := 0.0
		if s == current {
			v = 1.0
		}
		OverallStatus.WithLabelValues(s).Set(v)
	}
}
