// Copyright 2025 James Ross

// Package server implements the four scheduling policies — FCFS, SRPT, PS,
// and FB — behind one narrow contract the network engine drives: arrival,
// time advance, and completion routing (spec.md section 4.1). Each policy
// is a small state machine; dispatch is per-event but, per spec.md section
// 9, dwarfed by the policy's own work, so a plain interface is used rather
// than a hand-rolled tagged union.
package server

import "github.com/flyingrobots/queue-net-sim/internal/rng"

// epsilon is the floating-point tolerance used to decide "remaining has
// reached zero" for FCFS, SRPT, and PS. FB uses its own, tighter constant
// (see fb.go) because it also has to equate attained-service levels.
const epsilon = 1e-9

// unlimited marks a server with no finite buffer capacity.
const unlimited = -1

// Server is the behavioral contract every policy implements. The engine
// only ever calls these methods; policies are otherwise free to keep
// whatever internal bookkeeping they need.
type Server interface {
	// Reset restores empty state and zeroes all counters.
	Reset()

	// Arrival notifies the server a job has just arrived at its current
	// local clock, sampling a fresh service time from src where the
	// policy needs one. The engine guarantees it is not full beforehand.
	Arrival(src *rng.Source)

	// Update advances the local clock by dt and drains dt units of
	// wall-clock service through the policy's rule. It returns true iff
	// exactly one job completed during this step. The engine guarantees
	// dt never exceeds QueryTTNC() at the time of the call.
	Update(dt float64) bool

	// QueryTTNC returns the time to next completion, or +Inf when idle.
	QueryTTNC() float64

	// Clone returns a fresh blueprint copy: same distribution and
	// structural parameters (num_servers, buffer_capacity), no dynamic
	// state. Used by the replicator to hand each worker a private copy.
	Clone() Server

	// IsFull reports whether the server's buffer capacity (if finite) is
	// saturated.
	IsFull() bool

	// RecordArrival increments the num_arrivals counter. The engine calls
	// this for every job routed toward the server, whether or not it is
	// ultimately accepted.
	RecordArrival()

	// RecordRejection increments the num_rejected counter.
	RecordRejection()

	// ResetLossCounters zeroes num_arrivals and num_rejected without
	// touching any other dynamic state; used at the warmup/measurement
	// boundary (spec.md section 4.2).
	ResetLossCounters()

	// Snapshot returns the post-run readable fields (spec.md section 6).
	Snapshot() Snapshot
}

// Snapshot is a read-only view of a server's externally observable state.
type Snapshot struct {
	State             int
	Clock             float64
	NumCompletions    int
	NumArrivals       int
	NumRejected       int
	NumServers        int
	BufferCapacity    int // unlimited (-1) if the server has no finite buffer
	LastResponseTime  float64
	MeanResponseTime  float64
}

// counters holds the fields common to every policy: local clock, buffer
// and server-count parameters, and the running statistics an engine reads
// back through Snapshot.
type counters struct {
	clock          float64
	state          int
	numServers     int
	bufferCapacity int // unlimited (-1) means no finite buffer

	numCompletions   int
	numArrivals      int
	numRejected      int
	lastResponseTime float64
	meanResponseTime float64
}

func (c *counters) reset() {
	c.clock = 0
	c.state = 0
	c.numCompletions = 0
	c.numArrivals = 0
	c.numRejected = 0
	c.lastResponseTime = 0
	c.meanResponseTime = 0
}

func (c *counters) isFull() bool {
	return c.bufferCapacity != unlimited && c.state >= c.bufferCapacity
}

func (c *counters) recordArrival()   { c.numArrivals++ }
func (c *counters) recordRejection() { c.numRejected++ }

func (c *counters) resetLossCounters() {
	c.numArrivals = 0
	c.numRejected = 0
}

// recordCompletion folds one job's response time into the running mean
// using Welford's incremental update, avoiding a second pass over history.
func (c *counters) recordCompletion(responseTime float64) {
	c.numCompletions++
	c.lastResponseTime = responseTime
	c.meanResponseTime += (responseTime - c.meanResponseTime) / float64(c.numCompletions)
}

func (c *counters) snapshot() Snapshot {
	return Snapshot{
		State:            c.state,
		Clock:            c.clock,
		NumCompletions:   c.numCompletions,
		NumArrivals:      c.numArrivals,
		NumRejected:      c.numRejected,
		NumServers:       c.numServers,
		BufferCapacity:   c.bufferCapacity,
		LastResponseTime: c.lastResponseTime,
		MeanResponseTime: c.meanResponseTime,
	}
}

// bufferCapacityArg converts the public constructor convention (0 or
// negative means unlimited is NOT allowed as zero — zero is always
// invalid; negative is the unlimited sentinel) into the internal
// unlimited marker. Validation of the zero case happens in each
// constructor so the error carries the right policy name.
func bufferCapacityArg(capacity int) int {
	if capacity < 0 {
		return unlimited
	}
	return capacity
}
