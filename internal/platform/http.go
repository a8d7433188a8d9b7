package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

const defaultAgentTimeout = 30 * time.Second

// AgentClient — адаптеры Authenticator и Extractor поверх agent-сервиса.
//
// Браузерная автоматизация вынесена в отдельный scraper-agent; этот
// клиент ходит в его HTTP API:
//
//	POST /login                → {"token": "..."}
//	GET  /tasks?scope=today&page=N → {"records": [...], "more": bool}
//
// 401 от agent означает, что платформа отвергла сессию — клиент
// возвращает ErrSessionExpired, и ветка эскалирует в повторный login.
type AgentClient struct {
	baseURL string
	client  *http.Client
}

// NewAgentClient создаёт клиент agent-сервиса платформы.
func NewAgentClient(baseURL string, timeout time.Duration) *AgentClient {
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}
	return &AgentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// agentToken — учётные данные, выданные agent-сервисом.
type agentToken struct {
	Token string `json:"token"`
}

// Login запрашивает у agent аутентификацию на платформе.
func (c *AgentClient) Login(ctx context.Context) (Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", nil)
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, wrapNetErr("login", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 401 на login — неверные учётные данные, фатально для ветки.
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("login: invalid credentials")
		}
		return nil, classifyStatus("login", resp.StatusCode)
	}

	var tok agentToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if tok.Token == "" {
		return nil, fmt.Errorf("login response has empty token")
	}
	return tok, nil
}

// extractResponse — одна страница записей от agent.
type extractResponse struct {
	Records []domain.TaskRecord `json:"records"`
	More    bool                `json:"more"`
}

// ExtractPage запрашивает у agent страницу записей за сегодня.
func (c *AgentClient) ExtractPage(ctx context.Context, creds Credentials, page int) ([]domain.TaskRecord, bool, error) {
	tok, ok := creds.(agentToken)
	if !ok {
		return nil, false, ErrNoCredentials
	}

	url := fmt.Sprintf("%s/tasks?scope=today&page=%d", c.baseURL, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, wrapNetErr("extract", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, classifyStatus("extract", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Структурно несовместимый ответ — фатально, retry не поможет.
		return nil, false, fmt.Errorf("decode extract response: %w", err)
	}
	return out.Records, out.More, nil
}

// wrapNetErr помечает сетевую ошибку временной: таймауты, отказ
// соединения и обрывы — всё это кандидаты на retry.
func wrapNetErr(op string, err error) error {
	return Transient(fmt.Errorf("%s: %w", op, err))
}

// classifyStatus превращает HTTP-статус agent в ошибку контракта.
func classifyStatus(op string, code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrSessionExpired)
	case code >= 500:
		return Transient(fmt.Errorf("%s: agent returned %d", op, code))
	default:
		return fmt.Errorf("%s: agent returned %d", op, code)
	}
}
