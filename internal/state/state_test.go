package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Qlikwatch/internal/domain"
)

func TestNew_InitialState(t *testing.T) {
	st := New(uuid.New(), 3)

	for _, p := range domain.Platforms {
		br := st.Branch(p)
		if br == nil {
			t.Fatalf("branch %s should exist", p)
		}
		if br.Status() != domain.BranchPending {
			t.Errorf("branch %s: expected PENDING, got %s", p, br.Status())
		}
		if br.RetryCount() != 0 {
			t.Errorf("branch %s: retry count should start at 0", p)
		}
	}

	if _, set := st.Overall(); set {
		t.Error("overall status should not be set initially")
	}
	if st.AllTerminal() {
		t.Error("fresh state should not be terminal")
	}
}

func TestSetOverall_SecondWriteRejected(t *testing.T) {
	st := New(uuid.New(), 3)

	if err := st.SetOverall(domain.GroupSuccess); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := st.SetOverall(domain.GroupFailed); err == nil {
		t.Error("second write should be rejected")
	}

	got, set := st.Overall()
	if !set || got != domain.GroupSuccess {
		t.Errorf("overall should remain SUCCESS, got %s (set=%v)", got, set)
	}
}

func TestConsumeRetry_Budget(t *testing.T) {
	st := New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)

	for i := 0; i < 3; i++ {
		if !br.ConsumeRetry(st.MaxRetries) {
			t.Fatalf("retry %d should be within budget", i+1)
		}
	}
	if br.ConsumeRetry(st.MaxRetries) {
		t.Error("budget exhausted, ConsumeRetry should return false")
	}
	if br.RetryCount() != 3 {
		t.Errorf("retry count must never exceed the budget, got %d", br.RetryCount())
	}
}

func TestConsumeRetry_SharedAcrossSteps(t *testing.T) {
	// The budget belongs to the branch, not to an individual step:
	// retries spent on login leave less for extraction.
	st := New(uuid.New(), 3)
	br := st.Branch(domain.PlatformPublisher)

	br.ConsumeRetry(st.MaxRetries) // login retry
	br.ConsumeRetry(st.MaxRetries) // extract retry
	br.ConsumeRetry(st.MaxRetries) // extract retry

	if br.ConsumeRetry(st.MaxRetries) {
		t.Error("fourth retry should be rejected regardless of which step asks")
	}
}

func TestBranchIsolation(t *testing.T) {
	st := New(uuid.New(), 3)

	console := st.Branch(domain.PlatformConsole)
	console.ConsumeRetry(st.MaxRetries)
	console.SetStatus(domain.BranchRunning)
	console.SetError("console failure")

	publisher := st.Branch(domain.PlatformPublisher)
	if publisher.RetryCount() != 0 {
		t.Error("publisher retry count must not be affected by console")
	}
	if publisher.Status() != domain.BranchPending {
		t.Error("publisher status must not be affected by console")
	}
	if publisher.LastError() != "" {
		t.Error("publisher error must not be affected by console")
	}
}

func TestSetStatus_TerminalIsIdempotent(t *testing.T) {
	st := New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)

	br.SetStatus(domain.BranchRunning)
	if !br.SetStatus(domain.BranchFailed) {
		t.Fatal("RUNNING -> FAILED should succeed")
	}
	if br.SetStatus(domain.BranchSucceeded) {
		t.Error("terminal status must not be overwritten")
	}
	if br.Status() != domain.BranchFailed {
		t.Errorf("status should remain FAILED, got %s", br.Status())
	}
}

func TestPutReport_NoOverwrite(t *testing.T) {
	st := New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)

	br.PutReport("Hitos", domain.GroupReport{Status: domain.GroupSuccess})
	br.PutReport("Hitos", domain.GroupReport{Status: domain.GroupFailed})

	if got := br.Reports()["Hitos"].Status; got != domain.GroupSuccess {
		t.Errorf("report must be immutable once written, got %s", got)
	}
}

func TestLogf_ConcurrentAppend(t *testing.T) {
	st := New(uuid.New(), 3)

	var wg sync.WaitGroup
	const perWriter = 50
	for _, p := range domain.Platforms {
		wg.Add(1)
		go func(p domain.Platform) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				st.Logf("%s: entry %d", p, i)
			}
		}(p)
	}
	wg.Wait()

	logs := st.Logs()
	if len(logs) != perWriter*len(domain.Platforms) {
		t.Errorf("expected %d log entries, got %d", perWriter*len(domain.Platforms), len(logs))
	}

	// Entries from each writer keep their relative order.
	for _, p := range domain.Platforms {
		next := 0
		for _, entry := range logs {
			if entry.Message == fmt.Sprintf("%s: entry %d", p, next) {
				next++
			}
		}
		if next != perWriter {
			t.Errorf("%s: writer order broken, matched %d of %d entries", p, next, perWriter)
		}
	}
}

func TestAllTerminal(t *testing.T) {
	st := New(uuid.New(), 3)

	st.Branch(domain.PlatformConsole).SetStatus(domain.BranchRunning)
	st.Branch(domain.PlatformConsole).SetStatus(domain.BranchSucceeded)
	if st.AllTerminal() {
		t.Error("one pending branch should keep AllTerminal false")
	}

	st.Branch(domain.PlatformPublisher).SetStatus(domain.BranchRunning)
	st.Branch(domain.PlatformPublisher).SetStatus(domain.BranchFailed)
	if !st.AllTerminal() {
		t.Error("both branches terminal, AllTerminal should be true")
	}
}

func TestSnapshot_ExcludesCredentials(t *testing.T) {
	st := New(uuid.New(), 3)
	br := st.Branch(domain.PlatformConsole)
	br.SetCredentials("secret-token")
	br.SetRaw([]domain.TaskRecord{{Name: "t1"}})
	br.SetStatus(domain.BranchRunning)
	br.SetStatus(domain.BranchSucceeded)
	br.PutReport("Hitos", domain.GroupReport{Status: domain.GroupSuccess})

	snap := st.Snapshot()

	bs, ok := snap.Branches[domain.PlatformConsole]
	if !ok {
		t.Fatal("console branch missing from snapshot")
	}
	if bs.Status != domain.BranchSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", bs.Status)
	}
	if bs.RecordCount != 1 {
		t.Errorf("expected 1 record, got %d", bs.RecordCount)
	}
	if len(bs.Reports) != 1 {
		t.Errorf("expected 1 report, got %d", len(bs.Reports))
	}
}
