package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/platform"
)

const defaultLLMTimeout = 60 * time.Second

// LLM — классификатор через внешний chat-completions API.
//
// На каждую группу отправляется один запрос с упрощённым списком задач
// и строгой иерархией статусов в промпте. Ответ модели — JSON-вердикт,
// возможно обёрнутый в markdown-ограждения, которые клиент срезает.
//
// Сетевые ошибки и 5xx — временные. Невалидный JSON от модели тоже
// ретраится: следующий вызов может дать корректный ответ.
type LLM struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// LLMConfig — конфигурация LLM-классификатора.
type LLMConfig struct {
	// Endpoint — URL chat-completions API.
	Endpoint string

	// Model — имя модели.
	Model string

	// APIKey — ключ доступа.
	APIKey string

	// Timeout — таймаут одного запроса (default: 60s).
	Timeout time.Duration
}

// NewLLM создаёт LLM-классификатор.
func NewLLM(cfg LLMConfig) *LLM {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	return &LLM{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// simplifiedTask — урезанная запись для промпта (экономия токенов).
type simplifiedTask struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Progress int    `json:"progress,omitempty"`
}

// verdict — ожидаемый JSON-ответ модели.
type verdict struct {
	Status       string   `json:"status"`
	Summary      string   `json:"summary"`
	FailedTasks  []string `json:"failed_tasks"`
	RunningTasks []string `json:"running_tasks"`
}

// chatRequest / chatResponse — минимальный срез chat-completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Classify отправляет группу задач модели и разбирает вердикт.
func (l *LLM) Classify(ctx context.Context, group string, records []domain.TaskRecord) (domain.GroupReport, error) {
	enabled := make([]simplifiedTask, 0, len(records))
	for _, rec := range records {
		if rec.Disabled {
			continue
		}
		enabled = append(enabled, simplifiedTask{
			Name:     rec.Name,
			Status:   rec.Status,
			Progress: rec.Progress,
		})
	}

	if len(enabled) == 0 {
		// Нечего спрашивать у модели.
		return domain.GroupReport{
			Status:  domain.GroupNoRun,
			Summary: "No enabled tasks found for this process today.",
		}, nil
	}

	content, err := l.complete(ctx, buildPrompt(group, enabled))
	if err != nil {
		return domain.GroupReport{}, err
	}

	var v verdict
	if err := json.Unmarshal([]byte(stripFences(content)), &v); err != nil {
		return domain.GroupReport{}, platform.Transient(fmt.Errorf("parse model verdict: %w", err))
	}

	status, err := parseStatus(v.Status)
	if err != nil {
		return domain.GroupReport{}, platform.Transient(err)
	}

	return domain.GroupReport{
		Status:       status,
		Summary:      v.Summary,
		FailedTasks:  v.FailedTasks,
		RunningTasks: v.RunningTasks,
		TaskCount:    len(enabled),
	}, nil
}

// complete выполняет один вызов chat-completions API.
func (l *LLM) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       l.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", platform.Transient(fmt.Errorf("call model: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("model returned %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", platform.Transient(err)
		}
		return "", err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", platform.Transient(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", platform.Transient(fmt.Errorf("model returned no choices"))
	}
	return out.Choices[0].Message.Content, nil
}

// buildPrompt собирает промпт со строгой иерархией статусов.
func buildPrompt(group string, tasks []simplifiedTask) string {
	tasksJSON, _ := json.MarshalIndent(tasks, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Act as a process analyst. Analyze the following tasks for the process %q.\n\n", group)
	b.WriteString("These tasks ran TODAY. All listed tasks are enabled.\n\n")
	b.WriteString("STRICT status hierarchy (top priority wins):\n")
	b.WriteString("1. \"FAILED\": if ANY task is Failed, Error, Aborted, Skipped, Never started or Reset.\n")
	b.WriteString("2. \"RUNNING\": if no failures, but ANY task is actively executing or below 100% progress.\n")
	b.WriteString("3. \"PENDING\": if no failures and no active execution, but tasks are queued or waiting.\n")
	b.WriteString("4. \"SUCCESS\": if and ONLY IF all tasks completed successfully.\n\n")
	b.WriteString("Tasks:\n")
	b.Write(tasksJSON)
	b.WriteString("\n\nRespond with JSON only:\n")
	b.WriteString(`{"status": "SUCCESS" | "RUNNING" | "FAILED" | "PENDING", "summary": "one sentence", "failed_tasks": [...], "running_tasks": [...]}`)
	return b.String()
}

// stripFences срезает markdown-ограждения вокруг JSON-ответа модели.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// parseStatus разбирает статус из вердикта модели.
func parseStatus(s string) (domain.GroupStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FAILED":
		return domain.GroupFailed, nil
	case "RUNNING":
		return domain.GroupRunning, nil
	case "PENDING":
		return domain.GroupPending, nil
	case "SUCCESS":
		return domain.GroupSuccess, nil
	case "NO_RUN":
		return domain.GroupNoRun, nil
	default:
		return "", fmt.Errorf("model returned unknown status %q", s)
	}
}
