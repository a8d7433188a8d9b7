package platform

import (
	"sort"
	"strings"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

// Grouper распределяет извлечённые записи по отслеживаемым группам
// процессов.
//
// Контракт: Partition возвращает запись для КАЖДОЙ отслеживаемой группы,
// включая пустые — группа без записей классифицируется как NO_RUN,
// а не пропадает из отчёта.
type Grouper interface {
	Partition(records []domain.TaskRecord) map[string][]domain.TaskRecord

	// Groups возвращает имена отслеживаемых групп в стабильном порядке.
	Groups() []string
}

// TagGrouper группирует записи console по вхождению отслеживаемого
// тега в строку тегов задачи (например FE_HITOS_DIARIO → "Hitos").
type TagGrouper struct {
	// monitored: тег → имя группы.
	monitored map[string]string
	groups    []string
}

// NewTagGrouper создаёт группировку по тегам.
func NewTagGrouper(monitored map[string]string) *TagGrouper {
	return &TagGrouper{
		monitored: monitored,
		groups:    sortedValues(monitored),
	}
}

// Partition распределяет записи по группам. Запись может попасть
// в несколько групп, если её теги содержат несколько отслеживаемых.
func (g *TagGrouper) Partition(records []domain.TaskRecord) map[string][]domain.TaskRecord {
	parts := emptyPartitions(g.monitored)
	for _, rec := range records {
		for tag, group := range g.monitored {
			if strings.Contains(rec.Tags, tag) {
				parts[group] = append(parts[group], rec)
			}
		}
	}
	return parts
}

// Groups возвращает имена групп.
func (g *TagGrouper) Groups() []string {
	return g.groups
}

// PrefixGrouper группирует записи publisher по префиксу имени задачи
// (например "h." → "Hitos", "q1." → "Calidad de Cartera").
type PrefixGrouper struct {
	// monitored: префикс → имя группы.
	monitored map[string]string
	groups    []string
}

// NewPrefixGrouper создаёт группировку по префиксам имён.
func NewPrefixGrouper(monitored map[string]string) *PrefixGrouper {
	return &PrefixGrouper{
		monitored: monitored,
		groups:    sortedValues(monitored),
	}
}

// Partition распределяет записи по группам по префиксу имени.
func (g *PrefixGrouper) Partition(records []domain.TaskRecord) map[string][]domain.TaskRecord {
	parts := emptyPartitions(g.monitored)
	for _, rec := range records {
		for prefix, group := range g.monitored {
			if strings.HasPrefix(rec.Name, prefix) {
				parts[group] = append(parts[group], rec)
			}
		}
	}
	return parts
}

// Groups возвращает имена групп.
func (g *PrefixGrouper) Groups() []string {
	return g.groups
}

func emptyPartitions(monitored map[string]string) map[string][]domain.TaskRecord {
	parts := make(map[string][]domain.TaskRecord, len(monitored))
	for _, group := range monitored {
		parts[group] = nil
	}
	return parts
}

func sortedValues(m map[string]string) []string {
	vals := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, v := range m {
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	sort.Strings(vals)
	return vals
}
