// Energy policy: put long-idle hosts to sleep, surface sleeping capacity
// for wake-up when the engine cannot place a job, and keep a cooldown on
// freshly woken hosts so the cluster does not oscillate between states.

package sched

import "github.com/sirupsen/logrus"

// EnergyPolicy decides power-state requests from cluster snapshots.
// Thresholds are simulated seconds.
type EnergyPolicy struct {
	// IdleThreshold is how long a host may sit idle before being slept.
	IdleThreshold float64
	// WakeCooldown exempts a woken host from re-sleep until it either runs
	// a job or this much time passes after the wake completed.
	WakeCooldown float64
}

// NewEnergyPolicy builds a policy from resolved configuration.
func NewEnergyPolicy(idleThreshold, wakeCooldown float64) *EnergyPolicy {
	return &EnergyPolicy{IdleThreshold: idleThreshold, WakeCooldown: wakeCooldown}
}

// SleepCandidates returns the idle hosts that have exceeded the idle
// threshold and are outside the wake cooldown, ascending by ID.
func (p *EnergyPolicy) SleepCandidates(now float64, c *Cluster) []int {
	var ids []int
	for _, h := range c.Hosts() {
		if h.PowerState != StateIdle {
			continue
		}
		if now-h.IdleSince < p.IdleThreshold {
			continue
		}
		if h.WokenAt >= 0 && now-h.WokenAt < p.WakeCooldown {
			logrus.Debugf("host %d in wake cooldown, not slept", h.ID)
			continue
		}
		ids = append(ids, h.ID)
	}
	return ids
}

// Evaluate emits the sleep decisions for the current snapshot and applies
// the corresponding switching_off transitions to the tracker.
func (p *EnergyPolicy) Evaluate(now float64, c *Cluster) ([]Decision, error) {
	candidates := p.SleepCandidates(now, c)
	if len(candidates) == 0 {
		return nil, nil
	}
	for _, id := range candidates {
		if err := c.RequestPowerOff(id); err != nil {
			return nil, err
		}
	}
	logrus.Infof("[t=%.1f] sleeping %d idle hosts: %v", now, len(candidates), candidates)
	return []Decision{SetResourceState(now, candidates, StateSleeping)}, nil
}

// WakeCandidates returns up to n sleeping hosts to wake, ascending by ID.
func (p *EnergyPolicy) WakeCandidates(n int, c *Cluster) []int {
	sleeping := c.SleepingHosts()
	if n < len(sleeping) {
		sleeping = sleeping[:n]
	}
	return sleeping
}
