package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Qlikwatch/internal/domain"
)

// RunState — разделяемое состояние одного мониторингового run.
//
// Жёсткий контракт владения:
//   - Поля каждой ветки (Branch) пишет только горутина этой ветки.
//     Между ветками нет общих изменяемых полей, поэтому Branch
//     не требует блокировок.
//   - Журнал (logs) — единственное поле, в которое пишут обе ветки
//     конкурентно; доступ защищён мьютексом, записи только добавляются.
//   - Итоговый вердикт (overall) записывается ровно один раз,
//     строго после того как обе ветки достигли терминального статуса.
//
// Жизненный цикл: создаётся в начале run, прошивается по ссылке через
// все шаги обеих веток, читается агрегатором, сохраняется как snapshot
// для аудита и отбрасывается.
type RunState struct {
	// RunID — идентификатор run, к которому привязано состояние.
	RunID uuid.UUID

	// MaxRetries — бюджет повторов на ветку.
	MaxRetries int

	branches map[domain.Platform]*Branch

	logMu sync.Mutex
	logs  []LogEntry

	overallMu  sync.Mutex
	overall    domain.GroupStatus
	overallSet bool
}

// LogEntry — одна запись журнала run.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Branch — подсостояние одной ветки pipeline.
//
// Все методы Branch вызываются только из горутины своей ветки
// (или после барьера, когда конкурентных записей уже нет),
// поэтому синхронизация здесь не нужна.
type Branch struct {
	platform domain.Platform

	status      domain.BranchStatus
	credentials any
	raw         []domain.TaskRecord
	reports     map[string]domain.GroupReport
	retryCount  int
	lastError   string
}

// New создаёт состояние run с обнулёнными счётчиками и пустыми полями.
func New(runID uuid.UUID, maxRetries int) *RunState {
	branches := make(map[domain.Platform]*Branch, len(domain.Platforms))
	for _, p := range domain.Platforms {
		branches[p] = &Branch{
			platform: p,
			status:   domain.BranchPending,
		}
	}
	return &RunState{
		RunID:      runID,
		MaxRetries: maxRetries,
		branches:   branches,
	}
}

// Branch возвращает подсостояние ветки платформы.
func (s *RunState) Branch(p domain.Platform) *Branch {
	return s.branches[p]
}

// Logf добавляет запись в журнал run. Потокобезопасен.
func (s *RunState) Logf(format string, args ...any) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	s.logs = append(s.logs, LogEntry{
		Time:    time.Now(),
		Message: fmt.Sprintf(format, args...),
	})
}

// Logs возвращает копию журнала в порядке добавления.
func (s *RunState) Logs() []LogEntry {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// SetOverall записывает итоговый вердикт. Повторная запись запрещена.
func (s *RunState) SetOverall(status domain.GroupStatus) error {
	s.overallMu.Lock()
	defer s.overallMu.Unlock()

	if s.overallSet {
		return fmt.Errorf("overall status already set to %s", s.overall)
	}
	s.overall = status
	s.overallSet = true
	return nil
}

// Overall возвращает итоговый вердикт и признак того, что он записан.
func (s *RunState) Overall() (domain.GroupStatus, bool) {
	s.overallMu.Lock()
	defer s.overallMu.Unlock()
	return s.overall, s.overallSet
}

// AllTerminal возвращает true, если обе ветки достигли терминального статуса.
func (s *RunState) AllTerminal() bool {
	for _, b := range s.branches {
		if !b.status.IsTerminal() {
			return false
		}
	}
	return true
}

// --- Branch ---

// Platform возвращает платформу ветки.
func (b *Branch) Platform() domain.Platform {
	return b.platform
}

// Status возвращает текущий статус ветки.
func (b *Branch) Status() domain.BranchStatus {
	return b.status
}

// SetStatus переводит ветку в новый статус.
// Недопустимые переходы (откат, перезапись терминального) игнорируются:
// терминальное состояние идемпотентно.
func (b *Branch) SetStatus(next domain.BranchStatus) bool {
	if !b.status.CanTransitionTo(next) {
		return false
	}
	b.status = next
	return true
}

// SetCredentials сохраняет учётные данные после успешного login.
func (b *Branch) SetCredentials(creds any) {
	b.credentials = creds
}

// Credentials возвращает сохранённые учётные данные (nil до login).
func (b *Branch) Credentials() any {
	return b.credentials
}

// SetRaw сохраняет извлечённые записи.
func (b *Branch) SetRaw(records []domain.TaskRecord) {
	b.raw = records
}

// Raw возвращает извлечённые записи (nil до extract).
func (b *Branch) Raw() []domain.TaskRecord {
	return b.raw
}

// PutReport записывает отчёт классификации для группы.
// Уже записанный отчёт не перезаписывается: GroupReport иммутабелен.
func (b *Branch) PutReport(group string, rep domain.GroupReport) {
	if b.reports == nil {
		b.reports = make(map[string]domain.GroupReport)
	}
	if _, exists := b.reports[group]; exists {
		return
	}
	b.reports[group] = rep
}

// Reports возвращает отчёты по группам (имя группы → отчёт).
func (b *Branch) Reports() map[string]domain.GroupReport {
	return b.reports
}

// RetryCount возвращает число израсходованных повторов.
func (b *Branch) RetryCount() int {
	return b.retryCount
}

// ConsumeRetry расходует одну попытку из бюджета ветки.
// Возвращает false, если бюджет исчерпан. Счётчик никогда
// не превышает MaxRetries и сбрасывается только при создании run.
func (b *Branch) ConsumeRetry(maxRetries int) bool {
	if b.retryCount >= maxRetries {
		return false
	}
	b.retryCount++
	return true
}

// SetError запоминает описание последней ошибки ветки.
func (b *Branch) SetError(msg string) {
	b.lastError = msg
}

// ClearError очищает ошибку после успешного повтора.
func (b *Branch) ClearError() {
	b.lastError = ""
}

// LastError возвращает описание последней ошибки ("" если её нет).
func (b *Branch) LastError() string {
	return b.lastError
}
