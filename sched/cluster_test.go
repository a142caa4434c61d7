package sched

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCluster_AllHostsIdle(t *testing.T) {
	// GIVEN a new cluster of 4 hosts
	c := NewCluster(4)

	// THEN all hosts are idle and allocatable, in ID order
	assert.Equal(t, []int{0, 1, 2, 3}, c.AvailableHosts())
	assert.Equal(t, StateCounts{Idle: 4}, c.Snapshot())
}

func TestCluster_AssignRelease_RoundTrip(t *testing.T) {
	// GIVEN a cluster with hosts 0,1 assigned to a job
	c := NewCluster(3)
	c.Assign("j1", []int{0, 1})

	// THEN only host 2 is allocatable and the census reflects it
	if got := c.AvailableHosts(); len(got) != 1 || got[0] != 2 {
		t.Errorf("AvailableHosts after Assign: got %v, want [2]", got)
	}
	assert.Equal(t, StateCounts{Computing: 2, Idle: 1}, c.Snapshot())
	if c.Host(0).JobID != "j1" {
		t.Errorf("host 0 JobID: got %q, want j1", c.Host(0).JobID)
	}

	// WHEN the job's hosts are released at t=50
	c.Release(50, []int{0, 1})

	// THEN they are idle again with IdleSince updated
	assert.Equal(t, []int{0, 1, 2}, c.AvailableHosts())
	if c.Host(0).IdleSince != 50 {
		t.Errorf("host 0 IdleSince: got %f, want 50", c.Host(0).IdleSince)
	}
	if c.Host(0).JobID != "" {
		t.Errorf("host 0 JobID after release: got %q, want empty", c.Host(0).JobID)
	}
}

func TestCluster_RequestPowerOff_OnlyFromIdle(t *testing.T) {
	// GIVEN a cluster where host 0 is computing
	c := NewCluster(2)
	c.Assign("j1", []int{0})

	// WHEN powering off the computing host
	err := c.RequestPowerOff(0)

	// THEN it fails with InvalidTransition
	var invalid *InvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("RequestPowerOff on computing host: got %v, want *InvalidTransition", err)
	}
	if invalid.From != StateComputing || invalid.To != StateSwitchingOff {
		t.Errorf("InvalidTransition: got %s -> %s", invalid.From, invalid.To)
	}

	// AND powering off the idle host succeeds exactly once
	if err := c.RequestPowerOff(1); err != nil {
		t.Fatalf("RequestPowerOff on idle host: %v", err)
	}
	if err := c.RequestPowerOff(1); err == nil {
		t.Error("second RequestPowerOff on mid-transition host should fail")
	}
}

func TestCluster_RequestPowerOn_OnlyFromSleeping(t *testing.T) {
	// GIVEN a cluster where host 0 is sleeping
	c := NewCluster(2)
	c.ApplyStateChange(10, []int{0}, StateSleeping)

	// WHEN waking it
	if err := c.RequestPowerOn(0); err != nil {
		t.Fatalf("RequestPowerOn on sleeping host: %v", err)
	}

	// THEN the host is mid-transition and cannot be woken again
	if got := c.Host(0).PowerState; got != StateSwitchingOn {
		t.Errorf("host 0 state: got %s, want switching_on", got)
	}
	var invalid *InvalidTransition
	if err := c.RequestPowerOn(0); !errors.As(err, &invalid) {
		t.Errorf("second RequestPowerOn: got %v, want *InvalidTransition", err)
	}

	// AND waking an idle host fails too
	if err := c.RequestPowerOn(1); err == nil {
		t.Error("RequestPowerOn on idle host should fail")
	}
}

func TestCluster_ApplyStateChange_WakeCompletionSetsCooldownMarker(t *testing.T) {
	// GIVEN a sleeping host that was asked to wake
	c := NewCluster(1)
	c.ApplyStateChange(10, []int{0}, StateSleeping)
	if err := c.RequestPowerOn(0); err != nil {
		t.Fatal(err)
	}

	// WHEN the backend confirms the host idle at t=40
	c.ApplyStateChange(40, []int{0}, StateIdle)

	// THEN the host is idle, freshly woken, and allocatable
	h := c.Host(0)
	if h.PowerState != StateIdle {
		t.Errorf("state: got %s, want idle", h.PowerState)
	}
	if h.WokenAt != 40 {
		t.Errorf("WokenAt: got %f, want 40", h.WokenAt)
	}
	if h.IdleSince != 40 {
		t.Errorf("IdleSince: got %f, want 40", h.IdleSince)
	}
}

func TestCluster_ApplyStateChange_BackendIsAuthoritative(t *testing.T) {
	// GIVEN a host the scheduler believes is switching_off
	c := NewCluster(1)
	if err := c.RequestPowerOff(0); err != nil {
		t.Fatal(err)
	}

	// WHEN the backend reports it back to idle instead of sleeping
	c.ApplyStateChange(20, []int{0}, StateIdle)

	// THEN the tracker adopts the confirmed state
	if got := c.Host(0).PowerState; got != StateIdle {
		t.Errorf("state: got %s, want idle", got)
	}
}

func TestCluster_ApplyStateChange_Replay_IsDeterministic(t *testing.T) {
	// GIVEN two freshly initialized clusters
	apply := func(c *Cluster) {
		c.ApplyStateChange(10, []int{0, 2}, StateSleeping)
		c.Assign("j1", []int{1})
		c.ApplyStateChange(30, []int{2}, StateIdle)
		c.Release(40, []int{1})
	}
	a, b := NewCluster(4), NewCluster(4)

	// WHEN the same event sequence is applied to both
	apply(a)
	apply(b)

	// THEN the resulting host states are identical
	for i := 0; i < 4; i++ {
		assert.Equal(t, *a.Host(i), *b.Host(i), "host %d diverged", i)
	}
}
