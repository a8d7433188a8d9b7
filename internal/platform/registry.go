package platform

import (
	"fmt"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

// BranchConfig — полный набор коллабораторов для ветки одной платформы.
//
// Фиксированная топология "две ветки + merge" выражена как реестр
// одинаково устроенных конфигураций: pipeline один, параметризация — здесь.
type BranchConfig struct {
	// Platform — платформа ветки.
	Platform domain.Platform

	// Auth — адаптер аутентификации.
	Auth Authenticator

	// Extractor — адаптер извлечения записей.
	Extractor Extractor

	// Classifier — коллаборатор классификации групп.
	Classifier Classifier

	// Grouper — распределение записей по группам процессов.
	Grouper Grouper
}

// Validate проверяет, что все коллабораторы заданы.
func (c *BranchConfig) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("branch config: platform is required")
	}
	if c.Auth == nil {
		return fmt.Errorf("branch config %s: authenticator is required", c.Platform)
	}
	if c.Extractor == nil {
		return fmt.Errorf("branch config %s: extractor is required", c.Platform)
	}
	if c.Classifier == nil {
		return fmt.Errorf("branch config %s: classifier is required", c.Platform)
	}
	if c.Grouper == nil {
		return fmt.Errorf("branch config %s: grouper is required", c.Platform)
	}
	return nil
}

// Registry — реестр конфигураций веток по платформам.
type Registry struct {
	configs map[domain.Platform]BranchConfig
	order   []domain.Platform
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[domain.Platform]BranchConfig),
	}
}

// Register добавляет конфигурацию ветки.
// Повторная регистрация платформы — ошибка.
func (r *Registry) Register(cfg BranchConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, exists := r.configs[cfg.Platform]; exists {
		return fmt.Errorf("platform %s already registered", cfg.Platform)
	}
	r.configs[cfg.Platform] = cfg
	r.order = append(r.order, cfg.Platform)
	return nil
}

// Get возвращает конфигурацию ветки платформы.
func (r *Registry) Get(p domain.Platform) (BranchConfig, bool) {
	cfg, ok := r.configs[p]
	return cfg, ok
}

// All возвращает конфигурации в порядке регистрации.
func (r *Registry) All() []BranchConfig {
	out := make([]BranchConfig, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.configs[p])
	}
	return out
}

// Size возвращает количество зарегистрированных веток.
func (r *Registry) Size() int {
	return len(r.configs)
}
