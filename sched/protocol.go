// Wire-level message types exchanged with the simulation backend.
//
// The backend drives simulated time and sends batches of events as a JSON
// envelope {"now": <seconds>, "events": [...]}. The scheduler replies with
// an envelope of the same shape whose events are decisions. One reply per
// batch, always, even when there is nothing to decide.

package sched

import (
	"encoding/json"
	"fmt"
)

// EventKind tags an event sent by the backend.
type EventKind string

const (
	EventSimulationBegins     EventKind = "simulation_begins"
	EventJobSubmitted         EventKind = "job_submitted"
	EventJobCompleted         EventKind = "job_completed"
	EventJobKilled            EventKind = "job_killed"
	EventResourceStateChanged EventKind = "resource_state_changed"
	EventRequestedCall        EventKind = "requested_call"
	EventEnergyConsumed       EventKind = "energy_consumed"
	EventSimulationEnds       EventKind = "simulation_ends"
)

// DecisionKind tags a decision sent back to the backend.
type DecisionKind string

const (
	DecisionExecuteJob       DecisionKind = "execute_job"
	DecisionRejectJob        DecisionKind = "reject_job"
	DecisionSetResourceState DecisionKind = "set_resource_state"
	DecisionCallMeLater      DecisionKind = "call_me_later"
)

// Batch is one backend envelope: the current simulated time and the events
// that happened since the last reply, in backend order.
type Batch struct {
	Now    float64 `json:"now"`
	Events []Event `json:"events"`
}

// Event is a single backend event. Data is decoded lazily by kind via the
// typed accessors below.
type Event struct {
	Timestamp float64         `json:"timestamp"`
	Kind      EventKind       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SimulationBeginsData carries the cluster description at startup.
type SimulationBeginsData struct {
	NbResources int     `json:"nb_resources"`
	Hosts       []int   `json:"resource_ids,omitempty"`
	Time        float64 `json:"time,omitempty"`
}

// JobSubmittedData describes a newly submitted job.
type JobSubmittedData struct {
	JobID     string  `json:"job_id"`
	Resources int     `json:"res"`
	Walltime  float64 `json:"walltime"`
	Profile   string  `json:"profile,omitempty"`
}

// JobTerminatedData identifies the job of a job_completed/job_killed event.
type JobTerminatedData struct {
	JobID string `json:"job_id"`
	State string `json:"state,omitempty"`
}

// ResourceStateChangedData reports a confirmed power-state transition for a
// set of hosts. The backend is authoritative: the reported state is the
// actual one, whatever was requested.
type ResourceStateChangedData struct {
	Resources []int      `json:"resources"`
	State     PowerState `json:"state"`
}

// EnergyConsumedData reports cumulative energy consumed by the platform, in
// joules, since the beginning of the simulation.
type EnergyConsumedData struct {
	ConsumedEnergy float64 `json:"consumed_energy"`
}

func (e Event) decode(v any) error {
	if len(e.Data) == 0 {
		return &ProtocolError{Reason: fmt.Sprintf("event %q has no data payload", e.Kind)}
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("decoding %q event data", e.Kind), Err: err}
	}
	return nil
}

// SimulationBegins decodes the payload of a simulation_begins event.
func (e Event) SimulationBegins() (SimulationBeginsData, error) {
	var d SimulationBeginsData
	err := e.decode(&d)
	return d, err
}

// JobSubmitted decodes the payload of a job_submitted event.
func (e Event) JobSubmitted() (JobSubmittedData, error) {
	var d JobSubmittedData
	err := e.decode(&d)
	return d, err
}

// JobTerminated decodes the payload of a job_completed or job_killed event.
func (e Event) JobTerminated() (JobTerminatedData, error) {
	var d JobTerminatedData
	err := e.decode(&d)
	return d, err
}

// ResourceStateChanged decodes the payload of a resource_state_changed event.
func (e Event) ResourceStateChanged() (ResourceStateChangedData, error) {
	var d ResourceStateChangedData
	err := e.decode(&d)
	return d, err
}

// EnergyConsumed decodes the payload of an energy_consumed event.
func (e Event) EnergyConsumed() (EnergyConsumedData, error) {
	var d EnergyConsumedData
	err := e.decode(&d)
	return d, err
}

// Decision is a single scheduler decision, serialized inside the reply
// envelope with the same {timestamp, type, data} shape as events.
type Decision struct {
	Timestamp float64      `json:"timestamp"`
	Kind      DecisionKind `json:"type"`
	Data      any          `json:"data,omitempty"`
}

type executeJobData struct {
	JobID string `json:"job_id"`
	Hosts []int  `json:"alloc"`
}

type rejectJobData struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason,omitempty"`
}

type setResourceStateData struct {
	Resources []int      `json:"resources"`
	State     PowerState `json:"state"`
}

type callMeLaterData struct {
	At float64 `json:"timestamp"`
}

// ExecuteJob builds an execute_job decision allocating hosts to a job.
func ExecuteJob(now float64, jobID string, hosts []int) Decision {
	return Decision{Timestamp: now, Kind: DecisionExecuteJob, Data: executeJobData{JobID: jobID, Hosts: hosts}}
}

// RejectJob builds a reject_job decision.
func RejectJob(now float64, jobID, reason string) Decision {
	return Decision{Timestamp: now, Kind: DecisionRejectJob, Data: rejectJobData{JobID: jobID, Reason: reason}}
}

// SetResourceState builds a set_resource_state decision requesting a power
// transition for a set of hosts.
func SetResourceState(now float64, hosts []int, state PowerState) Decision {
	return Decision{Timestamp: now, Kind: DecisionSetResourceState, Data: setResourceStateData{Resources: hosts, State: state}}
}

// CallMeLater builds a call_me_later decision asking the backend to emit a
// requested_call event at the given simulated time.
func CallMeLater(now, at float64) Decision {
	return Decision{Timestamp: now, Kind: DecisionCallMeLater, Data: callMeLaterData{At: at}}
}
