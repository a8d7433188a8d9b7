package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/platform"
	"github.com/shaiso/Qlikwatch/internal/state"
)

func instantController() *RetryController {
	c := NewRetryController(RetryPolicy{Backoff: "fixed", InitialDelay: time.Millisecond}, 0, slog.Default())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestRetryController_RetriesTransient(t *testing.T) {
	st := state.New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)
	c := instantController()

	attempts := 0
	err := c.Do(context.Background(), st, br, "extract", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return platform.Transient(errors.New("timeout"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if br.RetryCount() != 2 {
		t.Errorf("expected 2 retries consumed, got %d", br.RetryCount())
	}
	if br.LastError() != "" {
		t.Errorf("error must be cleared after success, got %q", br.LastError())
	}
}

func TestRetryController_BudgetBoundsAttempts(t *testing.T) {
	st := state.New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)
	c := instantController()

	final := platform.Transient(errors.New("always down"))
	attempts := 0
	err := c.Do(context.Background(), st, br, "extract", func(ctx context.Context) error {
		attempts++
		return final
	})
	if !errors.Is(err, final) {
		t.Fatalf("final error must be returned as is, got %v", err)
	}
	// Первая попытка плюс maxRetries повторов.
	if attempts != 4 {
		t.Errorf("expected 4 attempts with budget 3, got %d", attempts)
	}
	if br.RetryCount() != 3 {
		t.Errorf("expected budget fully consumed, got %d", br.RetryCount())
	}
}

func TestRetryController_BudgetSharedAcrossSteps(t *testing.T) {
	st := state.New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)
	c := instantController()

	loginAttempts := 0
	err := c.Do(context.Background(), st, br, "login", func(ctx context.Context) error {
		loginAttempts++
		if loginAttempts < 3 {
			return platform.Transient(errors.New("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Осталась одна попытка повтора на всю ветку.
	extractAttempts := 0
	err = c.Do(context.Background(), st, br, "extract", func(ctx context.Context) error {
		extractAttempts++
		return platform.Transient(errors.New("still down"))
	})
	if err == nil {
		t.Fatal("expected error after budget exhaustion")
	}
	if extractAttempts != 2 {
		t.Errorf("expected 2 extract attempts with 1 retry left, got %d", extractAttempts)
	}
}

func TestRetryController_FatalNotRetried(t *testing.T) {
	st := state.New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)
	c := instantController()

	fatal := errors.New("invalid credentials")
	attempts := 0
	err := c.Do(context.Background(), st, br, "login", func(ctx context.Context) error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error back, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("fatal error must not be retried, got %d attempts", attempts)
	}
	if br.RetryCount() != 0 {
		t.Errorf("fatal error must not consume budget, got %d", br.RetryCount())
	}
}

func TestRetryController_SessionExpiredEscalates(t *testing.T) {
	st := state.New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)
	c := instantController()

	attempts := 0
	err := c.Do(context.Background(), st, br, "extract", func(ctx context.Context) error {
		attempts++
		return platform.ErrSessionExpired
	})
	if !errors.Is(err, platform.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired back, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("session expiry must escalate, not retry in place, got %d attempts", attempts)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	fixed := RetryPolicy{Backoff: "fixed", InitialDelay: 2 * time.Second}
	for attempt := 1; attempt <= 4; attempt++ {
		if d := fixed.delay(attempt); d != 2*time.Second {
			t.Errorf("fixed attempt %d: expected 2s, got %v", attempt, d)
		}
	}

	exp := RetryPolicy{Backoff: "exponential", InitialDelay: time.Second, MaxDelay: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if d := exp.delay(i + 1); d != w {
			t.Errorf("exponential attempt %d: expected %v, got %v", i+1, w, d)
		}
	}
}
