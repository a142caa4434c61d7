package sched

// JobState is the lifecycle state of a job. Transitions are strictly
// pending -> running -> completed, or pending -> rejected.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobRejected  JobState = "rejected"
)

// Job is the scheduler's view of one workload job. IDs are assigned by the
// workload source; the scheduler never invents them.
type Job struct {
	ID         string
	SubmitTime float64
	Resources  int     // requested host count
	Walltime   float64 // requested runtime upper bound, seconds
	Profile    string  // opaque compute/energy signature identifier
	State      JobState

	// Allocation is the ordered host set the job runs on; set on
	// markRunning, non-empty for every running job.
	Allocation []int
	StartTime  float64
	FinishTime float64
	// RejectReason is set when State is rejected.
	RejectReason string
}
