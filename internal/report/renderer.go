package report

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

// HTMLRenderer пишет комбинированный отчёт в HTML-файл.
//
// Файлы раскладываются по каталогам за день (02_01_2006), внутри дня
// имена содержат время генерации. Запись атомарна: сначала временный
// файл, затем rename — читатель каталога никогда не видит
// недописанный отчёт.
type HTMLRenderer struct {
	// OutputDir — корневой каталог отчётов (default: "reports").
	OutputDir string

	tmpl *template.Template
}

// NewHTMLRenderer создаёт рендерер с разобранным шаблоном.
func NewHTMLRenderer(outputDir string) (*HTMLRenderer, error) {
	if outputDir == "" {
		outputDir = "reports"
	}
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"statusClass": statusClass,
	}).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &HTMLRenderer{OutputDir: outputDir, tmpl: tmpl}, nil
}

// Render генерирует HTML и возвращает путь к записанному файлу.
func (r *HTMLRenderer) Render(ctx context.Context, rep *domain.CombinedReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(r.OutputDir, rep.GeneratedAt.Format("02_01_2006"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir: %w", err)
	}

	name := fmt.Sprintf("report_%s.html", rep.GeneratedAt.Format("150405"))
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("report: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.tmpl.Execute(tmp, viewFromReport(rep)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("report: execute template: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("report: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("report: publish: %w", err)
	}
	return final, nil
}

// view — данные шаблона, развёрнутые из отчёта в стабильном порядке.
type view struct {
	Overall     domain.GroupStatus
	Summary     string
	GeneratedAt string
	Partial     bool
	Excluded    []string
	Platforms   []platformView
}

type platformView struct {
	Name   string
	Groups []groupView
}

type groupView struct {
	Name         string
	Status       domain.GroupStatus
	Summary      string
	TaskCount    int
	FailedTasks  []string
	RunningTasks []string
}

func viewFromReport(rep *domain.CombinedReport) view {
	v := view{
		Overall:     rep.OverallStatus,
		Summary:     rep.Summary,
		GeneratedAt: rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Partial:     rep.Partial,
	}
	for _, p := range rep.Excluded {
		v.Excluded = append(v.Excluded, string(p))
	}
	for _, p := range domain.Platforms {
		summary, ok := rep.Platforms[p]
		if !ok {
			continue
		}
		pv := platformView{Name: string(p)}
		for _, group := range sortedKeys(summary.Groups) {
			gr := summary.Groups[group]
			pv.Groups = append(pv.Groups, groupView{
				Name:         group,
				Status:       gr.Status,
				Summary:      gr.Summary,
				TaskCount:    gr.TaskCount,
				FailedTasks:  gr.FailedTasks,
				RunningTasks: gr.RunningTasks,
			})
		}
		v.Platforms = append(v.Platforms, pv)
	}
	return v
}

func statusClass(s domain.GroupStatus) string {
	switch s {
	case domain.GroupFailed:
		return "failed"
	case domain.GroupRunning:
		return "running"
	case domain.GroupPending:
		return "pending"
	case domain.GroupSuccess:
		return "success"
	default:
		return "norun"
	}
}
