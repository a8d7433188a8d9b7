package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

var errTest = errors.New("boom")

func TestTagGrouper_Partition(t *testing.T) {
	g := NewTagGrouper(map[string]string{
		"FE_HITOS_DIARIO":   "Hitos",
		"FE_CALIDAD_CIERRE": "Calidad de Cartera",
	})

	records := []domain.TaskRecord{
		{Name: "load-a", Tags: "FE_HITOS_DIARIO, nightly"},
		{Name: "load-b", Tags: "FE_CALIDAD_CIERRE"},
		{Name: "load-c", Tags: "unrelated"},
	}

	parts := g.Partition(records)

	if len(parts["Hitos"]) != 1 || parts["Hitos"][0].Name != "load-a" {
		t.Errorf("Hitos should contain load-a, got %v", parts["Hitos"])
	}
	if len(parts["Calidad de Cartera"]) != 1 {
		t.Errorf("Calidad de Cartera should contain one record, got %v", parts["Calidad de Cartera"])
	}
}

func TestTagGrouper_EmptyGroupStillPresent(t *testing.T) {
	g := NewTagGrouper(map[string]string{"FE_HITOS_DIARIO": "Hitos"})

	parts := g.Partition(nil)

	if _, ok := parts["Hitos"]; !ok {
		t.Error("monitored group must be present even with no records")
	}
	if len(parts["Hitos"]) != 0 {
		t.Errorf("empty group should have no records, got %v", parts["Hitos"])
	}
}

func TestTagGrouper_RecordInMultipleGroups(t *testing.T) {
	g := NewTagGrouper(map[string]string{
		"FE_HITOS_DIARIO": "Hitos",
		"FE_COMUN":        "Comun",
	})

	records := []domain.TaskRecord{
		{Name: "shared", Tags: "FE_HITOS_DIARIO,FE_COMUN"},
	}

	parts := g.Partition(records)
	if len(parts["Hitos"]) != 1 || len(parts["Comun"]) != 1 {
		t.Error("record with both tags should land in both groups")
	}
}

func TestPrefixGrouper_Partition(t *testing.T) {
	g := NewPrefixGrouper(map[string]string{
		"h.":  "Hitos",
		"q1.": "Calidad de Cartera",
	})

	records := []domain.TaskRecord{
		{Name: "h.daily_report"},
		{Name: "q1.monthly_close"},
		{Name: "other.task"},
	}

	parts := g.Partition(records)

	if len(parts["Hitos"]) != 1 || parts["Hitos"][0].Name != "h.daily_report" {
		t.Errorf("Hitos should contain h.daily_report, got %v", parts["Hitos"])
	}
	if len(parts["Calidad de Cartera"]) != 1 {
		t.Errorf("Calidad de Cartera should contain one record, got %v", parts["Calidad de Cartera"])
	}
}

func TestGroups_StableOrder(t *testing.T) {
	g := NewTagGrouper(map[string]string{
		"c": "Charlie",
		"a": "Alpha",
		"b": "Bravo",
	})

	groups := g.Groups()
	want := []string{"Alpha", "Bravo", "Charlie"}
	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %d", len(want), len(groups))
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("groups[%d]: expected %s, got %s", i, want[i], groups[i])
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(Transient(errTest)) {
		t.Error("marked error should be transient")
	}
	if !IsTransient(ErrSessionExpired) {
		t.Error("session expiry should be transient")
	}
	if IsTransient(errTest) {
		t.Error("unmarked error should be fatal")
	}
	if IsTransient(nil) {
		t.Error("nil should not be transient")
	}
	if !IsTransient(fmt.Errorf("extract: %w", context.DeadlineExceeded)) {
		t.Error("wrapped deadline errors should be transient")
	}
	if !IsTransient(fmt.Errorf("outer: %w", Transient(errTest))) {
		t.Error("the transient mark should survive wrapping")
	}
}
