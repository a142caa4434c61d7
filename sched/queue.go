// JobQueue keeps pending/running/terminal job bookkeeping. The pending
// queue is ordered by (submit time, job ID) so that scheduling order is
// deterministic for simultaneous submissions.

package sched

import (
	"fmt"
	"sort"
)

// JobQueue tracks every job seen in the run and maintains the pending queue
// in scheduling order.
type JobQueue struct {
	jobs    map[string]*Job
	pending []*Job
	running int
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{jobs: make(map[string]*Job)}
}

// Admit enqueues a newly submitted job as pending. Admitting the same job ID
// twice is a protocol-level anomaly and fails.
func (q *JobQueue) Admit(job *Job) error {
	if _, ok := q.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already admitted", job.ID)
	}
	job.State = JobPending
	q.jobs[job.ID] = job
	q.pending = append(q.pending, job)
	sort.SliceStable(q.pending, func(i, j int) bool {
		if q.pending[i].SubmitTime != q.pending[j].SubmitTime {
			return q.pending[i].SubmitTime < q.pending[j].SubmitTime
		}
		return q.pending[i].ID < q.pending[j].ID
	})
	return nil
}

// Get returns the job with the given ID.
func (q *JobQueue) Get(id string) (*Job, bool) {
	j, ok := q.jobs[id]
	return j, ok
}

// NextCandidates returns up to limit pending jobs in scheduling order.
// limit <= 0 means all pending jobs. The returned slice is a copy; the
// engine may not reorder the queue through it.
func (q *JobQueue) NextCandidates(limit int) []*Job {
	n := len(q.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Job, n)
	copy(out, q.pending[:n])
	return out
}

// PendingCount returns the number of pending jobs.
func (q *JobQueue) PendingCount() int { return len(q.pending) }

// RunningCount returns the number of running jobs.
func (q *JobQueue) RunningCount() int { return q.running }

// Running returns all running jobs in ascending start-time order,
// tie-broken by ID. Used by the engine to project host free times.
func (q *JobQueue) Running() []*Job {
	var out []*Job
	for _, j := range q.jobs {
		if j.State == JobRunning {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// MarkRunning transitions a pending job to running with its allocation.
func (q *JobQueue) MarkRunning(id string, allocation []int, now float64) error {
	job, ok := q.jobs[id]
	if !ok || job.State != JobPending {
		return q.invalidJobTransition(id, JobRunning)
	}
	job.State = JobRunning
	job.Allocation = allocation
	job.StartTime = now
	q.removePending(id)
	q.running++
	return nil
}

// MarkCompleted transitions a running job to completed. Covers both normal
// completion and backend kills; the distinction matters only to metrics.
func (q *JobQueue) MarkCompleted(id string, now float64) error {
	job, ok := q.jobs[id]
	if !ok || job.State != JobRunning {
		return q.invalidJobTransition(id, JobCompleted)
	}
	job.State = JobCompleted
	job.FinishTime = now
	q.running--
	return nil
}

// MarkRejected transitions a pending job to rejected with a reason.
func (q *JobQueue) MarkRejected(id, reason string) error {
	job, ok := q.jobs[id]
	if !ok || job.State != JobPending {
		return q.invalidJobTransition(id, JobRejected)
	}
	job.State = JobRejected
	job.RejectReason = reason
	q.removePending(id)
	return nil
}

func (q *JobQueue) removePending(id string) {
	for i, j := range q.pending {
		if j.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *JobQueue) invalidJobTransition(id string, to JobState) error {
	from := JobState("unknown")
	if j, ok := q.jobs[id]; ok {
		from = j.State
	}
	return &InvalidJobTransition{JobID: id, From: from, To: to}
}
