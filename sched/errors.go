package sched

import "fmt"

// ReasonInfeasibleRequest is the rejection reason for jobs whose resource
// request exceeds total cluster capacity. Such jobs are rejected locally and
// the run continues.
const ReasonInfeasibleRequest = "InfeasibleRequest"

// ProtocolError reports a malformed payload, unexpected message ordering, or
// a backend disconnect. It is fatal: the simulation clock cannot be rewound,
// so there is no retry.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// InvalidTransition reports a power-state transition requested on a host that
// cannot accept it (typically a host already mid-transition). It indicates a
// scheduler bug, not a backend condition, and is not retried.
type InvalidTransition struct {
	Host int
	From PowerState
	To   PowerState
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition for host %d: %s -> %s", e.Host, e.From, e.To)
}

// InvalidJobTransition reports a job state change outside the allowed
// pending -> running -> completed order. Like InvalidTransition it flags a
// scheduler bug and terminates the run.
type InvalidJobTransition struct {
	JobID string
	From  JobState
	To    JobState
}

func (e *InvalidJobTransition) Error() string {
	return fmt.Sprintf("invalid transition for job %s: %s -> %s", e.JobID, e.From, e.To)
}
