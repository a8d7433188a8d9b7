package scheduler

import (
	"testing"
	"time"
)

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue("0 7 * * *", "UTC", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_Timezone(t *testing.T) {
	// 07:00 в Мадриде (CET, UTC+1) = 06:00 UTC.
	from := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue("0 7 * * *", "Europe/Madrid", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
	if next.Location() != time.UTC {
		t.Errorf("result must be in UTC, got %v", next.Location())
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	from := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue("0 7 * * *", "Mars/Olympus", from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected UTC fallback %v, got %v", want, next)
	}
}

func TestCalculateNextDue_InvalidExpression(t *testing.T) {
	if _, err := CalculateNextDue("not a cron", "UTC", time.Now()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 7 * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("99 99 * * *"); err == nil {
		t.Error("invalid expression accepted")
	}
}
