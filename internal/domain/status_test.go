package domain

import "testing"

func TestWorstStatus_FailedWins(t *testing.T) {
	statuses := []GroupStatus{GroupSuccess, GroupRunning, GroupFailed, GroupPending}

	if got := WorstStatus(statuses); got != GroupFailed {
		t.Errorf("expected FAILED, got %s", got)
	}
}

func TestWorstStatus_RunningBeatsPendingAndSuccess(t *testing.T) {
	statuses := []GroupStatus{GroupSuccess, GroupPending, GroupRunning}

	if got := WorstStatus(statuses); got != GroupRunning {
		t.Errorf("expected RUNNING, got %s", got)
	}
}

func TestWorstStatus_PendingBeatsSuccess(t *testing.T) {
	statuses := []GroupStatus{GroupSuccess, GroupPending, GroupSuccess}

	if got := WorstStatus(statuses); got != GroupPending {
		t.Errorf("expected PENDING, got %s", got)
	}
}

func TestWorstStatus_NoRunDoesNotSpoilSuccess(t *testing.T) {
	statuses := []GroupStatus{GroupSuccess, GroupNoRun, GroupSuccess}

	if got := WorstStatus(statuses); got != GroupSuccess {
		t.Errorf("expected SUCCESS, got %s", got)
	}
}

func TestWorstStatus_AllNoRun(t *testing.T) {
	statuses := []GroupStatus{GroupNoRun, GroupNoRun}

	if got := WorstStatus(statuses); got != GroupNoRun {
		t.Errorf("expected NO_RUN, got %s", got)
	}
}

func TestWorstStatus_Empty(t *testing.T) {
	if got := WorstStatus(nil); got != GroupNoRun {
		t.Errorf("expected NO_RUN for empty input, got %s", got)
	}
}

func TestWorstStatus_Deterministic(t *testing.T) {
	// Same multiset in different orders must give the same verdict.
	a := []GroupStatus{GroupRunning, GroupSuccess, GroupPending}
	b := []GroupStatus{GroupPending, GroupRunning, GroupSuccess}

	if WorstStatus(a) != WorstStatus(b) {
		t.Error("verdict must not depend on input order")
	}
}

func TestStatusFromTasks_SingleFailureFailsGroup(t *testing.T) {
	states := []TaskState{TaskSuccess, TaskSuccess, TaskFailed}

	if got := StatusFromTasks(states); got != GroupFailed {
		t.Errorf("expected FAILED, got %s", got)
	}
}

func TestStatusFromTasks_RunningBeatsPending(t *testing.T) {
	states := []TaskState{TaskPending, TaskRunning, TaskSuccess}

	if got := StatusFromTasks(states); got != GroupRunning {
		t.Errorf("expected RUNNING, got %s", got)
	}
}

func TestStatusFromTasks_AllSuccess(t *testing.T) {
	states := []TaskState{TaskSuccess, TaskSuccess}

	if got := StatusFromTasks(states); got != GroupSuccess {
		t.Errorf("expected SUCCESS, got %s", got)
	}
}

func TestStatusFromTasks_Empty(t *testing.T) {
	if got := StatusFromTasks(nil); got != GroupNoRun {
		t.Errorf("expected NO_RUN for empty input, got %s", got)
	}
}

func TestSeverity_StrictOrder(t *testing.T) {
	ordered := []GroupStatus{GroupNoRun, GroupSuccess, GroupPending, GroupRunning, GroupFailed}

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Severity() <= ordered[i-1].Severity() {
			t.Errorf("%s must rank above %s", ordered[i], ordered[i-1])
		}
	}
}

func TestBranchStatus_Transitions(t *testing.T) {
	if !BranchPending.CanTransitionTo(BranchRunning) {
		t.Error("PENDING -> RUNNING must be allowed")
	}
	if !BranchRunning.CanTransitionTo(BranchFailed) {
		t.Error("RUNNING -> FAILED must be allowed")
	}
	if BranchRunning.CanTransitionTo(BranchPending) {
		t.Error("RUNNING -> PENDING must be rejected")
	}
	if BranchFailed.CanTransitionTo(BranchSucceeded) {
		t.Error("terminal status must not be overwritten")
	}
	if BranchSucceeded.CanTransitionTo(BranchFailed) {
		t.Error("terminal status must not be overwritten")
	}
}
