package record

// Summary aggregates a run's samples the way the offline analyzer does:
// mean/max utilization and job counts, plus power-state transition counts.
type Summary struct {
	MeanUtilization float64
	MaxUtilization  float64
	MeanRunningJobs float64
	MaxRunningJobs  int
	MeanWaitingJobs float64
	MaxWaitingJobs  int

	// SleepTransitions and WakeTransitions count samples during which at
	// least one host was switching off, respectively on.
	SleepTransitions int
	WakeTransitions  int
}

// Summary computes aggregate statistics over the recorded rows.
func (r *Recorder) Summary() Summary {
	var s Summary
	n := len(r.rows)
	if n == 0 {
		return s
	}
	for _, row := range r.rows {
		s.MeanUtilization += row.UtilizationRate
		s.MeanRunningJobs += float64(row.RunningJobs)
		s.MeanWaitingJobs += float64(row.WaitingJobs)
		if row.UtilizationRate > s.MaxUtilization {
			s.MaxUtilization = row.UtilizationRate
		}
		if row.RunningJobs > s.MaxRunningJobs {
			s.MaxRunningJobs = row.RunningJobs
		}
		if row.WaitingJobs > s.MaxWaitingJobs {
			s.MaxWaitingJobs = row.WaitingJobs
		}
		if row.NbSwitchingOff > 0 {
			s.SleepTransitions++
		}
		if row.NbSwitchingOn > 0 {
			s.WakeTransitions++
		}
	}
	s.MeanUtilization /= float64(n)
	s.MeanRunningJobs /= float64(n)
	s.MeanWaitingJobs /= float64(n)
	return s
}
