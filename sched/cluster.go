// Cluster tracks the power state and assignment of every host, reconciling
// the transitions the scheduler requested against the transitions the
// backend confirmed. The backend is authoritative for actual state.

package sched

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// PowerState describes a host's energy posture.
type PowerState string

const (
	StateIdle         PowerState = "idle"
	StateComputing    PowerState = "computing"
	StateSwitchingOn  PowerState = "switching_on"
	StateSwitchingOff PowerState = "switching_off"
	StateSleeping     PowerState = "sleeping"
)

// Host is a single compute resource with unit capacity: it runs at most one
// job at a time.
type Host struct {
	ID         int
	PowerState PowerState
	JobID      string // empty when no job assigned

	// IdleSince is the simulated time the host last entered idle.
	IdleSince float64
	// WokenAt is the time the host last completed a wake transition, or -1
	// if it never has. Used by the energy policy's re-sleep cooldown.
	WokenAt float64
}

// StateCounts is a per-power-state census of the cluster, consumed by the
// recorder and by log lines.
type StateCounts struct {
	Computing    int
	Idle         int
	Sleeping     int
	SwitchingOn  int
	SwitchingOff int
}

// Cluster is the scheduler-side state tracker for all hosts. All reads are
// consistent with the most recently applied event batch: the single decision
// pass is the only mutator.
type Cluster struct {
	hosts []*Host
}

// NewCluster creates a cluster of n hosts with IDs 0..n-1, all idle.
func NewCluster(n int) *Cluster {
	hosts := make([]*Host, n)
	for i := range hosts {
		hosts[i] = &Host{ID: i, PowerState: StateIdle, WokenAt: -1}
	}
	return &Cluster{hosts: hosts}
}

// Size returns the total number of hosts, which bounds any feasible request.
func (c *Cluster) Size() int { return len(c.hosts) }

// Host returns the host with the given ID, or nil if out of range.
func (c *Cluster) Host(id int) *Host {
	if id < 0 || id >= len(c.hosts) {
		return nil
	}
	return c.hosts[id]
}

// Hosts returns all hosts in ID order. Callers must not modify the slice.
func (c *Cluster) Hosts() []*Host { return c.hosts }

// AvailableHosts returns the IDs of hosts in state idle, ascending. Hosts
// mid-transition are not allocatable until the backend confirms them idle.
func (c *Cluster) AvailableHosts() []int {
	return c.hostsInState(StateIdle)
}

// SleepingHosts returns the IDs of hosts in state sleeping, ascending.
func (c *Cluster) SleepingHosts() []int {
	return c.hostsInState(StateSleeping)
}

func (c *Cluster) hostsInState(state PowerState) []int {
	var ids []int
	for _, h := range c.hosts {
		if h.PowerState == state {
			ids = append(ids, h.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// RequestPowerOn marks a sleeping host as switching_on. The transition is
// not complete until the backend confirms it via resource_state_changed.
func (c *Cluster) RequestPowerOn(id int) error {
	h := c.Host(id)
	if h == nil || h.PowerState != StateSleeping {
		return c.invalidTransition(id, StateSwitchingOn)
	}
	h.PowerState = StateSwitchingOn
	return nil
}

// RequestPowerOff marks an idle host as switching_off. Hosts that are
// computing or already mid-transition cannot be powered off.
func (c *Cluster) RequestPowerOff(id int) error {
	h := c.Host(id)
	if h == nil || h.PowerState != StateIdle {
		return c.invalidTransition(id, StateSwitchingOff)
	}
	h.PowerState = StateSwitchingOff
	return nil
}

func (c *Cluster) invalidTransition(id int, to PowerState) error {
	from := PowerState("unknown")
	if h := c.Host(id); h != nil {
		from = h.PowerState
	}
	return &InvalidTransition{Host: id, From: from, To: to}
}

// ApplyStateChange records a backend-confirmed power state for a set of
// hosts. A host confirmed idle out of switching_on counts as freshly woken
// for cooldown purposes.
func (c *Cluster) ApplyStateChange(now float64, ids []int, state PowerState) {
	for _, id := range ids {
		h := c.Host(id)
		if h == nil {
			logrus.Warnf("resource_state_changed for unknown host %d ignored", id)
			continue
		}
		if state == StateIdle {
			if h.PowerState == StateSwitchingOn {
				h.WokenAt = now
			}
			h.IdleSince = now
		}
		logrus.Debugf("host %d: %s -> %s at t=%.3f", id, h.PowerState, state, now)
		h.PowerState = state
	}
}

// Assign marks hosts as computing the given job. A freshly woken host that
// receives work sheds its cooldown marker.
func (c *Cluster) Assign(jobID string, ids []int) {
	for _, id := range ids {
		h := c.Host(id)
		h.PowerState = StateComputing
		h.JobID = jobID
		h.WokenAt = -1
	}
}

// Release returns a terminated job's hosts to idle.
func (c *Cluster) Release(now float64, ids []int) {
	for _, id := range ids {
		h := c.Host(id)
		if h == nil {
			continue
		}
		h.PowerState = StateIdle
		h.JobID = ""
		h.IdleSince = now
	}
}

// Snapshot counts hosts per power state.
func (c *Cluster) Snapshot() StateCounts {
	var s StateCounts
	for _, h := range c.hosts {
		switch h.PowerState {
		case StateComputing:
			s.Computing++
		case StateIdle:
			s.Idle++
		case StateSleeping:
			s.Sleeping++
		case StateSwitchingOn:
			s.SwitchingOn++
		case StateSwitchingOff:
			s.SwitchingOff++
		}
	}
	return s
}
