// Tracks run-wide scheduling metrics for final reporting.

package sched

import "fmt"

// Metrics aggregates statistics about the run for final reporting.
type Metrics struct {
	CompletedJobs int // jobs that completed normally
	KilledJobs    int // jobs killed by the backend (walltime etc.)
	RejectedJobs  int // jobs rejected as infeasible

	TotalWait      float64 // sum of (start - submit) over started jobs
	Makespan       float64 // time of the last observed terminal event
	ConsumedEnergy float64 // last reported cumulative energy, joules

	JobWaits map[string]float64 // job ID -> wait time
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{JobWaits: make(map[string]float64)}
}

// RecordStart accounts a job's queue wait at allocation time.
func (m *Metrics) RecordStart(job *Job) {
	wait := job.StartTime - job.SubmitTime
	m.TotalWait += wait
	m.JobWaits[job.ID] = wait
}

// Print displays aggregated metrics at the end of the run.
func (m *Metrics) Print() {
	fmt.Println("=== Scheduling Metrics ===")
	fmt.Printf("Completed Jobs   : %d\n", m.CompletedJobs)
	fmt.Printf("Killed Jobs      : %d\n", m.KilledJobs)
	fmt.Printf("Rejected Jobs    : %d\n", m.RejectedJobs)
	started := len(m.JobWaits)
	if started > 0 {
		fmt.Printf("Average Wait     : %.2f s\n", m.TotalWait/float64(started))
	}
	fmt.Printf("Makespan         : %.2f s\n", m.Makespan)
	if m.ConsumedEnergy > 0 {
		fmt.Printf("Consumed Energy  : %.2f J\n", m.ConsumedEnergy)
	}
}
