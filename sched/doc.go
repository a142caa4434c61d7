// Package sched implements the scheduler decision engine and its protocol
// contract with the discrete-event simulation backend.
//
// # Reading Guide
//
// Start with these three files to understand the decision loop:
//   - protocol.go: the event/decision wire vocabulary exchanged with the backend
//   - session.go: the per-batch loop (apply events → schedule → power → reply)
//   - engine.go: FCFS with conservative backfilling and energy-aware wake-up
//
// # Architecture
//
// The backend owns the logical clock: it pushes event batches and blocks
// until the scheduler replies, so state mutation is single-threaded and
// total-ordered by construction. Collaborators:
//   - transport.go: synchronous newline-delimited JSON exchange, clock handshake
//   - cluster.go: per-host power-state machine reconciled from backend events
//   - queue.go: pending/running/terminal job bookkeeping, deterministic ordering
//   - energy.go: idle-sleep threshold, wake-up, and re-sleep cooldown hysteresis
//   - sched/record/: periodic cluster-state samples exported as CSV
package sched
