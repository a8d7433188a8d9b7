package config

// Пакет config загружает конфигурацию runner-а из YAML-файла.
//
// Порядок применения: файл → умолчания → валидация. Секреты
// (API-ключи, пароли агентов) в файле не хранятся — файл ссылается
// на имена переменных окружения.

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config — корневая конфигурация.
type Config struct {
	// MaxRetries — бюджет повторов на ветку (default: 3).
	MaxRetries int `yaml:"max_retries"`

	// StepTimeoutSec — таймаут одной попытки шага в секундах (default: 60).
	StepTimeoutSec int `yaml:"step_timeout_sec"`

	// MaxPages — предел пагинации при извлечении (default: 10).
	MaxPages int `yaml:"max_pages"`

	Retry      RetryConfig               `yaml:"retry"`
	Schedule   ScheduleConfig            `yaml:"schedule"`
	Platforms  map[string]PlatformConfig `yaml:"platforms"`
	Classifier ClassifierConfig          `yaml:"classifier"`
	Report     ReportConfig              `yaml:"report"`
	Artifact   ArtifactConfig            `yaml:"artifact"`
}

// RetryConfig — параметры backoff между повторами.
type RetryConfig struct {
	// Backoff — "fixed" или "exponential" (default: "exponential").
	Backoff string `yaml:"backoff"`

	// InitialDelayMs — задержка перед первым повтором (default: 1000).
	InitialDelayMs int `yaml:"initial_delay_ms"`

	// MaxDelayMs — потолок задержки (default: 30000).
	MaxDelayMs int `yaml:"max_delay_ms"`
}

// ScheduleConfig — расписание ежедневных запусков.
type ScheduleConfig struct {
	// Cron — выражение в стандартном 5-польном формате
	// (default: "0 7 * * *").
	Cron string `yaml:"cron"`

	// Timezone — IANA-зона расписания (default: "UTC").
	Timezone string `yaml:"timezone"`
}

// PlatformConfig — настройки одной платформы.
type PlatformConfig struct {
	// AgentURL — адрес scraper-агента платформы.
	AgentURL string `yaml:"agent_url"`

	// Monitored — отслеживаемые группы процессов:
	// ключ отбора → имя группы (ключ — тег задачи для console,
	// префикс имени для publisher).
	Monitored map[string]string `yaml:"monitored"`
}

// ClassifierConfig — выбор и настройки классификатора.
type ClassifierConfig struct {
	// Mode — "rules" или "llm" (default: "rules").
	Mode string `yaml:"mode"`

	// Endpoint — URL chat-completions API (только для llm).
	Endpoint string `yaml:"endpoint"`

	// Model — имя модели (только для llm).
	Model string `yaml:"model"`

	// APIKeyEnv — имя переменной окружения с API-ключом
	// (default: "QLIKWATCH_LLM_API_KEY").
	APIKeyEnv string `yaml:"api_key_env"`
}

// ReportConfig — вывод итогового отчёта.
type ReportConfig struct {
	// OutputDir — корневой каталог HTML-отчётов (default: "reports").
	OutputDir string `yaml:"output_dir"`
}

// ArtifactConfig — опциональная загрузка отчётов в объектное хранилище.
type ArtifactConfig struct {
	// Enabled включает загрузку.
	Enabled bool `yaml:"enabled"`

	Endpoint string `yaml:"endpoint"`

	// AccessKeyEnv / SecretKeyEnv — имена переменных окружения
	// с ключами доступа.
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`

	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	UseSSL bool   `yaml:"use_ssl"`
}

// Load читает и разбирает конфигурацию из файла.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.StepTimeoutSec == 0 {
		c.StepTimeoutSec = 60
	}
	if c.MaxPages == 0 {
		c.MaxPages = 10
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = "exponential"
	}
	if c.Retry.InitialDelayMs == 0 {
		c.Retry.InitialDelayMs = 1000
	}
	if c.Retry.MaxDelayMs == 0 {
		c.Retry.MaxDelayMs = 30000
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 7 * * *"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Classifier.Mode == "" {
		c.Classifier.Mode = "rules"
	}
	if c.Classifier.APIKeyEnv == "" {
		c.Classifier.APIKeyEnv = "QLIKWATCH_LLM_API_KEY"
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	if c.StepTimeoutSec <= 0 {
		return fmt.Errorf("step_timeout_sec must be > 0")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be > 0")
	}

	switch c.Retry.Backoff {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("retry.backoff must be 'fixed' or 'exponential', got %q", c.Retry.Backoff)
	}

	for name, p := range c.Platforms {
		if p.AgentURL == "" {
			return fmt.Errorf("platforms.%s: agent_url is required", name)
		}
		if len(p.Monitored) == 0 {
			return fmt.Errorf("platforms.%s: at least one monitored group is required", name)
		}
	}

	switch c.Classifier.Mode {
	case "rules":
	case "llm":
		if c.Classifier.Endpoint == "" {
			return fmt.Errorf("classifier.endpoint is required in llm mode")
		}
		if c.Classifier.Model == "" {
			return fmt.Errorf("classifier.model is required in llm mode")
		}
	default:
		return fmt.Errorf("classifier.mode must be 'rules' or 'llm', got %q", c.Classifier.Mode)
	}

	if c.Artifact.Enabled {
		if c.Artifact.Endpoint == "" || c.Artifact.Bucket == "" {
			return fmt.Errorf("artifact: endpoint and bucket are required when enabled")
		}
		if c.Artifact.AccessKeyEnv == "" || c.Artifact.SecretKeyEnv == "" {
			return fmt.Errorf("artifact: access_key_env and secret_key_env are required when enabled")
		}
	}
	return nil
}

// StepTimeout возвращает таймаут шага как time.Duration.
func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSec) * time.Second
}

// InitialDelay возвращает начальную задержку повтора.
func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.Retry.InitialDelayMs) * time.Millisecond
}

// MaxDelay возвращает потолок задержки повтора.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMs) * time.Millisecond
}

// APIKey возвращает API-ключ классификатора из окружения ("" если не задан).
func (c *ClassifierConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}
