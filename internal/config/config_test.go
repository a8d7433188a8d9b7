package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
max_retries: 5
retry:
  backoff: fixed
  initial_delay_ms: 500
schedule:
  cron: "30 6 * * *"
  timezone: Europe/Madrid
platforms:
  console:
    agent_url: http://localhost:9101
    monitored:
      "#hitos": Hitos
  publisher:
    agent_url: http://localhost:9102
    monitored:
      "q1.": Calidad
classifier:
  mode: llm
  endpoint: https://api.example.com/v1/chat/completions
  model: gpt-4o-mini
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.MaxRetries != 5 {
		t.Errorf("expected max_retries 5, got %d", cfg.MaxRetries)
	}
	if cfg.Retry.Backoff != "fixed" {
		t.Errorf("expected fixed backoff, got %q", cfg.Retry.Backoff)
	}
	if cfg.InitialDelay() != 500*time.Millisecond {
		t.Errorf("expected 500ms initial delay, got %v", cfg.InitialDelay())
	}
	if cfg.Schedule.Timezone != "Europe/Madrid" {
		t.Errorf("expected Europe/Madrid, got %q", cfg.Schedule.Timezone)
	}
	if cfg.Platforms["console"].Monitored["#hitos"] != "Hitos" {
		t.Errorf("unexpected monitored map: %v", cfg.Platforms["console"].Monitored)
	}
	if cfg.Classifier.Mode != "llm" {
		t.Errorf("expected llm mode, got %q", cfg.Classifier.Mode)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.StepTimeout() != 60*time.Second {
		t.Errorf("expected default step timeout 60s, got %v", cfg.StepTimeout())
	}
	if cfg.MaxPages != 10 {
		t.Errorf("expected default max_pages 10, got %d", cfg.MaxPages)
	}
	if cfg.Retry.Backoff != "exponential" {
		t.Errorf("expected default exponential backoff, got %q", cfg.Retry.Backoff)
	}
	if cfg.MaxDelay() != 30*time.Second {
		t.Errorf("expected default max delay 30s, got %v", cfg.MaxDelay())
	}
	if cfg.Schedule.Cron != "0 7 * * *" {
		t.Errorf("expected default cron, got %q", cfg.Schedule.Cron)
	}
	if cfg.Classifier.Mode != "rules" {
		t.Errorf("expected default rules mode, got %q", cfg.Classifier.Mode)
	}
	if cfg.Report.OutputDir != "reports" {
		t.Errorf("expected default output dir, got %q", cfg.Report.OutputDir)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "bad backoff",
			yaml:    "retry:\n  backoff: cubic\n",
			wantErr: "retry.backoff",
		},
		{
			name:    "bad classifier mode",
			yaml:    "classifier:\n  mode: oracle\n",
			wantErr: "classifier.mode",
		},
		{
			name:    "llm without endpoint",
			yaml:    "classifier:\n  mode: llm\n  model: gpt-4o-mini\n",
			wantErr: "classifier.endpoint",
		},
		{
			name:    "llm without model",
			yaml:    "classifier:\n  mode: llm\n  endpoint: https://api.example.com\n",
			wantErr: "classifier.model",
		},
		{
			name:    "platform without agent url",
			yaml:    "platforms:\n  console:\n    monitored:\n      \"#hitos\": Hitos\n",
			wantErr: "agent_url",
		},
		{
			name:    "platform without monitored groups",
			yaml:    "platforms:\n  console:\n    agent_url: http://localhost:9101\n",
			wantErr: "monitored",
		},
		{
			name:    "artifact enabled without bucket",
			yaml:    "artifact:\n  enabled: true\n  endpoint: localhost:9000\n",
			wantErr: "artifact",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
