package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/platform"
	"github.com/shaiso/Qlikwatch/internal/state"
)

func runBranch(t *testing.T, cfg platform.BranchConfig, maxRetries int) (*state.RunState, *state.Branch) {
	t.Helper()
	st := state.New(uuid.New(), maxRetries)
	b := NewBranch(cfg, instantController(), 0, nil)
	b.Run(context.Background(), st)
	return st, st.Branch(cfg.Platform)
}

func TestBranch_HappyPath(t *testing.T) {
	cfg := healthyConfig(domain.PlatformConsole)
	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", br.Status())
	}
	reports := br.Reports()
	if len(reports) != 1 {
		t.Fatalf("expected 1 group report, got %d", len(reports))
	}
	if reports["main"].Status != domain.GroupSuccess {
		t.Errorf("expected SUCCESS for group main, got %s", reports["main"].Status)
	}
	if br.RetryCount() != 0 {
		t.Errorf("clean run must not consume retries, got %d", br.RetryCount())
	}
}

func TestBranch_Pagination(t *testing.T) {
	cfg := healthyConfig(domain.PlatformConsole)
	ext := &fakeExtractor{pages: [][]domain.TaskRecord{
		{{Name: "t1", Status: "Success"}, {Name: "t2", Status: "Success"}},
		{{Name: "t3", Status: "Success"}},
		{{Name: "t4", Status: "Success"}},
	}}
	cfg.Extractor = ext

	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", br.Status())
	}
	if len(br.Raw()) != 4 {
		t.Errorf("expected 4 records across pages, got %d", len(br.Raw()))
	}
	if ext.calls != 3 {
		t.Errorf("expected 3 page fetches, got %d", ext.calls)
	}
}

func TestBranch_LoginFailureIsTerminal(t *testing.T) {
	cfg := brokenConfig(domain.PlatformConsole)
	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchFailed {
		t.Fatalf("expected FAILED, got %s", br.Status())
	}
	if br.LastError() == "" {
		t.Error("failed branch must record its error")
	}
	if len(br.Reports()) != 0 {
		t.Errorf("failed branch must not produce reports, got %d", len(br.Reports()))
	}
}

func TestBranch_SessionExpiryTriggersRelogin(t *testing.T) {
	cfg := healthyConfig(domain.PlatformPublisher)
	auth := &fakeAuth{}
	cfg.Auth = auth
	cfg.Extractor = &fakeExtractor{
		pages: [][]domain.TaskRecord{{{Name: "t1", Status: "Completed", Progress: 100}}},
		errs:  []error{platform.ErrSessionExpired},
	}

	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchSucceeded {
		t.Fatalf("expected SUCCEEDED after re-login, got %s (error: %s)", br.Status(), br.LastError())
	}
	if auth.calls != 2 {
		t.Errorf("expected re-login, got %d login calls", auth.calls)
	}
	if br.RetryCount() != 1 {
		t.Errorf("re-login must consume one retry, got %d", br.RetryCount())
	}
}

func TestBranch_SessionExpiryExhaustsBudget(t *testing.T) {
	cfg := healthyConfig(domain.PlatformPublisher)
	cfg.Extractor = &fakeExtractor{
		errs: []error{
			platform.ErrSessionExpired,
			platform.ErrSessionExpired,
			platform.ErrSessionExpired,
			platform.ErrSessionExpired,
		},
	}

	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchFailed {
		t.Fatalf("expected FAILED after budget exhaustion, got %s", br.Status())
	}
}

func TestBranch_EmptyGroupGetsNoRun(t *testing.T) {
	cfg := healthyConfig(domain.PlatformConsole)
	clf := &fakeClassifier{}
	cfg.Classifier = clf
	cfg.Grouper = platform.NewTagGrouper(map[string]string{
		"#hitos":   "Hitos",
		"#calidad": "Calidad",
	})
	cfg.Extractor = &fakeExtractor{pages: [][]domain.TaskRecord{
		{{Name: "load", Status: "Success", Tags: "#hitos"}},
	}}

	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", br.Status())
	}
	reports := br.Reports()
	if reports["Calidad"].Status != domain.GroupNoRun {
		t.Errorf("empty group must be NO_RUN, got %s", reports["Calidad"].Status)
	}
	if clf.calls != 1 {
		t.Errorf("classifier must not be called for empty groups, got %d calls", clf.calls)
	}
}

func TestBranch_ClassifyFailureKeepsClassifiedGroups(t *testing.T) {
	cfg := healthyConfig(domain.PlatformConsole)
	cfg.Grouper = platform.NewTagGrouper(map[string]string{
		"#a": "A",
		"#b": "B",
	})
	cfg.Extractor = &fakeExtractor{pages: [][]domain.TaskRecord{{
		{Name: "a1", Status: "Success", Tags: "#a"},
		{Name: "b1", Status: "Success", Tags: "#b"},
	}}}
	cfg.Classifier = &fakeClassifier{fn: func(group string, records []domain.TaskRecord) (domain.GroupReport, error) {
		if group == "B" {
			return domain.GroupReport{}, errors.New("model rejected input")
		}
		return domain.GroupReport{Status: domain.GroupSuccess, TaskCount: len(records)}, nil
	}}

	_, br := runBranch(t, cfg, 3)

	if br.Status() != domain.BranchFailed {
		t.Fatalf("expected FAILED, got %s", br.Status())
	}
	reports := br.Reports()
	if reports["A"].Status != domain.GroupSuccess {
		t.Errorf("group classified before the failure must be kept, got %s", reports["A"].Status)
	}
	if _, ok := reports["B"]; ok {
		t.Error("failed group must not have a report")
	}
}
