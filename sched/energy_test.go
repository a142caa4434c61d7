package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnergyPolicy_SleepCandidates_IdleThreshold(t *testing.T) {
	// GIVEN hosts idle since t=0 and t=80, threshold 100
	policy := NewEnergyPolicy(100, 50)
	c := NewCluster(2)
	c.Host(1).IdleSince = 80

	// WHEN evaluated at t=120
	got := policy.SleepCandidates(120, c)

	// THEN only the host idle for >= 100s is a candidate
	assert.Equal(t, []int{0}, got)
}

func TestEnergyPolicy_WakeCooldown_PreventsOscillation(t *testing.T) {
	// GIVEN a host woken at t=100 that has not run a job since
	policy := NewEnergyPolicy(100, 50)
	c := NewCluster(1)
	h := c.Host(0)
	h.WokenAt = 100
	h.IdleSince = 0 // idle well past the threshold

	// WHEN evaluated inside the cooldown window
	if got := policy.SleepCandidates(120, c); len(got) != 0 {
		t.Errorf("SleepCandidates inside cooldown: got %v, want none", got)
	}

	// THEN after the cooldown elapses the host may sleep again
	assert.Equal(t, []int{0}, policy.SleepCandidates(151, c))
}

func TestEnergyPolicy_RunningAJob_ClearsCooldown(t *testing.T) {
	// GIVEN a freshly woken host that receives work
	policy := NewEnergyPolicy(100, 1e9)
	c := NewCluster(1)
	c.Host(0).WokenAt = 100
	c.Assign("j1", []int{0})
	c.Release(200, []int{0})

	// WHEN evaluated long after it went idle again
	got := policy.SleepCandidates(400, c)

	// THEN the cooldown no longer applies: running a job reset it
	assert.Equal(t, []int{0}, got)
}

func TestEnergyPolicy_Evaluate_EmitsOneSleepDecision(t *testing.T) {
	// GIVEN three long-idle hosts and one computing host
	policy := NewEnergyPolicy(100, 50)
	c := NewCluster(4)
	c.Assign("j1", []int{2})

	// WHEN evaluated past the threshold
	decisions, err := policy.Evaluate(200, c)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// THEN one grouped sleep request covers the idle hosts and the tracker
	// shows them mid-transition
	assert.Equal(t, []Decision{SetResourceState(200, []int{0, 1, 3}, StateSleeping)}, decisions)
	for _, id := range []int{0, 1, 3} {
		if got := c.Host(id).PowerState; got != StateSwitchingOff {
			t.Errorf("host %d state: got %s, want switching_off", id, got)
		}
	}

	// AND a second evaluation is a no-op: no host is re-requested
	decisions, err = policy.Evaluate(300, c)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	assert.Empty(t, decisions)
}

func TestEnergyPolicy_WakeCandidates_LowestIDsFirst(t *testing.T) {
	policy := NewEnergyPolicy(100, 50)
	c := NewCluster(4)
	c.ApplyStateChange(0, []int{1, 2, 3}, StateSleeping)

	assert.Equal(t, []int{1, 2}, policy.WakeCandidates(2, c))
	assert.Equal(t, []int{1, 2, 3}, policy.WakeCandidates(5, c))
	assert.Empty(t, policy.WakeCandidates(0, c))
}
