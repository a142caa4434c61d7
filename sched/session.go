// Session owns one scheduler run against the backend: transport, cluster
// tracker, job queue, decision engine, energy policy, metrics, recorder.
// All state lives on the Session so multiple runs can coexist in tests.
//
// Per batch, strictly in order: apply every event, run one scheduling pass,
// run periodic power/record work if a requested callback fired, then send
// all decisions for the timestamp as one reply.

package sched

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/huyongqii/green-energy/sched/record"
)

// Session is the scheduler's per-run context object.
type Session struct {
	transport *Transport
	cfg       *Config

	cluster  *Cluster
	queue    *JobQueue
	policy   *EnergyPolicy
	engine   *Engine
	metrics  *Metrics
	recorder *record.Recorder

	now          float64
	started      bool // simulation_begins received
	ended        bool // simulation_ends received
	firstJobSeen bool

	lastPowerCheck float64
	callbackArmed  bool // a call_me_later is outstanding

	lastEnergy     float64
	lastEnergyTime float64
	currentPower   float64
}

// NewSession creates a session over an established transport.
func NewSession(t *Transport, cfg *Config) *Session {
	return &Session{
		transport: t,
		cfg:       cfg,
		metrics:   NewMetrics(),
		recorder:  record.NewRecorder(),
	}
}

// Metrics returns the run's metrics collector.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Recorder returns the run's cluster-state recorder.
func (s *Session) Recorder() *record.Recorder { return s.recorder }

// Run drives the receive/decide/reply loop until the backend announces
// simulation_ends, then exports records if configured. Any returned error
// is fatal; no decisions are sent after it.
func (s *Session) Run() error {
	for !s.ended {
		batch, err := s.transport.ReceiveBatch()
		if err != nil {
			return err
		}
		decisions, err := s.processBatch(batch)
		if err != nil {
			return err
		}
		if err := s.transport.SendDecisions(batch.Now, decisions); err != nil {
			return err
		}
	}
	if s.cfg.ExportPath != "" {
		if err := s.recorder.WriteFile(s.cfg.ExportPath); err != nil {
			return err
		}
		logrus.Infof("cluster-state records exported to %s", s.cfg.ExportPath)
	}
	return nil
}

func (s *Session) processBatch(batch *Batch) ([]Decision, error) {
	s.now = batch.Now
	var decisions []Decision
	needSchedule := false
	calledBack := false

	for _, ev := range batch.Events {
		if !s.started && ev.Kind != EventSimulationBegins {
			return nil, &ProtocolError{Reason: fmt.Sprintf("%q event before simulation_begins", ev.Kind)}
		}
		switch ev.Kind {
		case EventSimulationBegins:
			ds, err := s.onSimulationBegins(ev)
			if err != nil {
				return nil, err
			}
			decisions = append(decisions, ds...)

		case EventJobSubmitted:
			d, err := ev.JobSubmitted()
			if err != nil {
				return nil, err
			}
			job := &Job{
				ID:         d.JobID,
				SubmitTime: ev.Timestamp,
				Resources:  d.Resources,
				Walltime:   d.Walltime,
				Profile:    d.Profile,
			}
			if err := s.queue.Admit(job); err != nil {
				return nil, &ProtocolError{Reason: "admitting submitted job", Err: err}
			}
			logrus.Infof("[t=%.1f] job %s submitted (%d hosts, walltime %.1fs); pending=%d running=%d",
				s.now, job.ID, job.Resources, job.Walltime, s.queue.PendingCount(), s.queue.RunningCount())
			s.firstJobSeen = true
			needSchedule = true

		case EventJobCompleted, EventJobKilled:
			if err := s.onJobTerminated(ev); err != nil {
				return nil, err
			}
			needSchedule = true

		case EventResourceStateChanged:
			d, err := ev.ResourceStateChanged()
			if err != nil {
				return nil, err
			}
			s.cluster.ApplyStateChange(s.now, d.Resources, d.State)
			needSchedule = true

		case EventRequestedCall:
			calledBack = true
			s.callbackArmed = false

		case EventEnergyConsumed:
			if !s.cfg.EnergyMonitoring {
				continue
			}
			d, err := ev.EnergyConsumed()
			if err != nil {
				return nil, err
			}
			s.updatePower(d.ConsumedEnergy)

		case EventSimulationEnds:
			logrus.Infof("[t=%.1f] simulation ends", s.now)
			if s.now > s.metrics.Makespan {
				s.metrics.Makespan = s.now
			}
			s.ended = true

		default:
			return nil, &ProtocolError{Reason: fmt.Sprintf("unknown event kind %q", ev.Kind)}
		}
	}

	// No decisions may follow the simulation_ends reply.
	if s.ended {
		return decisions, nil
	}

	if needSchedule {
		ds, err := s.engine.Schedule(s.now)
		if err != nil {
			return nil, err
		}
		s.accountDecisions(ds)
		decisions = append(decisions, ds...)
	}

	if calledBack {
		if s.now-s.lastPowerCheck >= s.cfg.PowerCheckInterval {
			ds, err := s.policy.Evaluate(s.now, s.cluster)
			if err != nil {
				return nil, err
			}
			decisions = append(decisions, ds...)
			s.lastPowerCheck = s.now
		}
		s.recordState()
	}

	decisions = append(decisions, s.armCallback()...)
	return decisions, nil
}

func (s *Session) onSimulationBegins(ev Event) ([]Decision, error) {
	if s.started {
		return nil, &ProtocolError{Reason: "duplicate simulation_begins"}
	}
	d, err := ev.SimulationBegins()
	if err != nil {
		return nil, err
	}
	n := d.NbResources
	if n == 0 {
		n = len(d.Hosts)
	}
	if n <= 0 {
		return nil, &ProtocolError{Reason: "simulation_begins with no resources"}
	}
	s.cluster = NewCluster(n)
	s.queue = NewJobQueue()
	s.policy = NewEnergyPolicy(s.cfg.IdleThreshold, s.cfg.WakeCooldown)
	s.engine = NewEngine(s.cluster, s.queue, s.policy, s.cfg.BackfillWindow)
	s.started = true
	s.lastPowerCheck = s.now
	logrus.Infof("[t=%.1f] simulation begins with %d hosts", s.now, n)
	return s.armCallback(), nil
}

func (s *Session) onJobTerminated(ev Event) error {
	d, err := ev.JobTerminated()
	if err != nil {
		return err
	}
	job, ok := s.queue.Get(d.JobID)
	if !ok {
		return &ProtocolError{Reason: fmt.Sprintf("termination event for unknown job %s", d.JobID)}
	}
	if err := s.queue.MarkCompleted(d.JobID, s.now); err != nil {
		return err
	}
	s.cluster.Release(s.now, job.Allocation)
	if ev.Kind == EventJobKilled {
		s.metrics.KilledJobs++
		logrus.Infof("[t=%.1f] job %s killed by backend, hosts %v released", s.now, job.ID, job.Allocation)
	} else {
		s.metrics.CompletedJobs++
		logrus.Infof("[t=%.1f] job %s completed, hosts %v released", s.now, job.ID, job.Allocation)
	}
	if s.now > s.metrics.Makespan {
		s.metrics.Makespan = s.now
	}
	return nil
}

// accountDecisions folds an engine pass into the metrics.
func (s *Session) accountDecisions(ds []Decision) {
	for _, d := range ds {
		switch d.Kind {
		case DecisionExecuteJob:
			data := d.Data.(executeJobData)
			if job, ok := s.queue.Get(data.JobID); ok {
				s.metrics.RecordStart(job)
			}
		case DecisionRejectJob:
			s.metrics.RejectedJobs++
		}
	}
}

// armCallback asks the backend for a periodic wakeup, unless one is already
// outstanding or all submitted work has drained.
func (s *Session) armCallback() []Decision {
	if !s.started || s.callbackArmed {
		return nil
	}
	if s.firstJobSeen && s.queue.PendingCount() == 0 && s.queue.RunningCount() == 0 {
		logrus.Debugf("[t=%.1f] all jobs drained, stopping callbacks", s.now)
		return nil
	}
	at := s.now + s.cfg.RecordInterval
	s.callbackArmed = true
	return []Decision{CallMeLater(s.now, at)}
}

// updatePower derives current platform power from consecutive cumulative
// energy reports.
func (s *Session) updatePower(consumed float64) {
	if s.lastEnergyTime > 0 {
		dt := s.now - s.lastEnergyTime
		if dt > 0 {
			s.currentPower = (consumed - s.lastEnergy) / dt
		}
	}
	s.lastEnergy = consumed
	s.lastEnergyTime = s.now
	s.metrics.ConsumedEnergy = consumed
}

func (s *Session) recordState() {
	counts := s.cluster.Snapshot()
	util := 0.0
	if s.cluster.Size() > 0 {
		util = float64(counts.Computing) / float64(s.cluster.Size()) * 100
	}
	s.recorder.Record(record.Row{
		Time:            s.now,
		NbComputing:     counts.Computing,
		NbIdle:          counts.Idle,
		NbSleeping:      counts.Sleeping,
		NbSwitchingOn:   counts.SwitchingOn,
		NbSwitchingOff:  counts.SwitchingOff,
		RunningJobs:     s.queue.RunningCount(),
		WaitingJobs:     s.queue.PendingCount(),
		UtilizationRate: util,
		Power:           s.currentPower,
	})
}
