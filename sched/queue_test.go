package sched

import (
	"errors"
	"testing"
)

func TestJobQueue_Admit_OrdersBySubmitTimeThenID(t *testing.T) {
	// GIVEN jobs admitted out of order with a submit-time tie
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "b", SubmitTime: 10})
	mustAdmit(t, q, &Job{ID: "c", SubmitTime: 5})
	mustAdmit(t, q, &Job{ID: "a", SubmitTime: 10})

	// WHEN candidates are requested
	got := q.NextCandidates(0)

	// THEN order is (submit time, ID): c, a, b
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("NextCandidates: got %d jobs, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestJobQueue_NextCandidates_LimitsWindow(t *testing.T) {
	// GIVEN three pending jobs
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "a", SubmitTime: 0})
	mustAdmit(t, q, &Job{ID: "b", SubmitTime: 1})
	mustAdmit(t, q, &Job{ID: "c", SubmitTime: 2})

	// WHEN asking for a window of 2
	got := q.NextCandidates(2)

	// THEN only the first two are returned and the queue is untouched
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("NextCandidates(2): got %v", ids(got))
	}
	if q.PendingCount() != 3 {
		t.Errorf("PendingCount: got %d, want 3", q.PendingCount())
	}
}

func TestJobQueue_Admit_DuplicateID_Fails(t *testing.T) {
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "a"})
	if err := q.Admit(&Job{ID: "a"}); err == nil {
		t.Error("duplicate Admit should fail")
	}
}

func TestJobQueue_Lifecycle_PendingRunningCompleted(t *testing.T) {
	// GIVEN an admitted job
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "a", SubmitTime: 0, Resources: 2})

	// WHEN it is marked running with an allocation at t=5
	if err := q.MarkRunning("a", []int{0, 1}, 5); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	// THEN it left the pending queue and carries its allocation
	job, _ := q.Get("a")
	if job.State != JobRunning || job.StartTime != 5 {
		t.Errorf("after MarkRunning: state=%s start=%f", job.State, job.StartTime)
	}
	if q.PendingCount() != 0 || q.RunningCount() != 1 {
		t.Errorf("counts: pending=%d running=%d", q.PendingCount(), q.RunningCount())
	}

	// WHEN it completes at t=50
	if err := q.MarkCompleted("a", 50); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if job.State != JobCompleted || job.FinishTime != 50 {
		t.Errorf("after MarkCompleted: state=%s finish=%f", job.State, job.FinishTime)
	}
	if q.RunningCount() != 0 {
		t.Errorf("RunningCount after completion: got %d, want 0", q.RunningCount())
	}
}

func TestJobQueue_InvalidTransitions_Fail(t *testing.T) {
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "a"})

	// Completing a pending job skips running and must fail
	var invalid *InvalidJobTransition
	if err := q.MarkCompleted("a", 10); !errors.As(err, &invalid) {
		t.Errorf("MarkCompleted on pending: got %v, want *InvalidJobTransition", err)
	}

	// Unknown jobs fail the same way
	if err := q.MarkRunning("ghost", []int{0}, 0); !errors.As(err, &invalid) {
		t.Errorf("MarkRunning on unknown: got %v, want *InvalidJobTransition", err)
	}

	// A rejected job cannot start
	if err := q.MarkRejected("a", ReasonInfeasibleRequest); err != nil {
		t.Fatalf("MarkRejected: %v", err)
	}
	if err := q.MarkRunning("a", []int{0}, 0); !errors.As(err, &invalid) {
		t.Errorf("MarkRunning on rejected: got %v, want *InvalidJobTransition", err)
	}
}

func TestJobQueue_MarkRejected_RecordsReason(t *testing.T) {
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "a"})
	if err := q.MarkRejected("a", ReasonInfeasibleRequest); err != nil {
		t.Fatal(err)
	}
	job, _ := q.Get("a")
	if job.State != JobRejected || job.RejectReason != ReasonInfeasibleRequest {
		t.Errorf("rejected job: state=%s reason=%q", job.State, job.RejectReason)
	}
	if q.PendingCount() != 0 {
		t.Errorf("PendingCount after reject: got %d, want 0", q.PendingCount())
	}
}

func TestJobQueue_Running_SortedByStartThenID(t *testing.T) {
	// GIVEN running jobs with a start-time tie
	q := NewJobQueue()
	mustAdmit(t, q, &Job{ID: "b", SubmitTime: 0})
	mustAdmit(t, q, &Job{ID: "a", SubmitTime: 0})
	mustAdmit(t, q, &Job{ID: "c", SubmitTime: 0})
	for _, tc := range []struct {
		id    string
		start float64
	}{{"b", 10}, {"a", 10}, {"c", 5}} {
		if err := q.MarkRunning(tc.id, []int{0}, tc.start); err != nil {
			t.Fatal(err)
		}
	}

	// THEN Running() is deterministic: start time, then ID
	got := ids(q.Running())
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Running order: got %v, want %v", got, want)
			break
		}
	}
}

func mustAdmit(t *testing.T, q *JobQueue, job *Job) {
	t.Helper()
	if err := q.Admit(job); err != nil {
		t.Fatalf("Admit(%s): %v", job.ID, err)
	}
}

func ids(jobs []*Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
