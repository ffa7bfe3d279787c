// Copyright 2025 James Ross
package server

import (
	"container/heap"
	"math"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// srptJob is one job tracked by the preemptive shortest-remaining-
// processing-time queue. seq breaks ties between jobs with equal
// remaining time in FIFO order, matching the teacher's (remaining, seq)
// ordering convention for priority queues.
type srptJob struct {
	remaining   float64
	arrivalTime float64
	seq         int64
}

// srptHeap is a container/heap min-heap ordered by remaining time, then
// by arrival sequence.
type srptHeap []*srptJob

func (h srptHeap) Len() int { return len(h) }
func (h srptHeap) Less(i, j int) bool {
	if h[i].remaining != h[j].remaining {
		return h[i].remaining < h[j].remaining
	}
	return h[i].seq < h[j].seq
}
func (h srptHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *srptHeap) Push(x interface{}) {
	*h = append(*h, x.(*srptJob))
}
func (h *srptHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// SRPT implements preemptive shortest-remaining-processing-time
// scheduling on a single server (spec.md section 4.1). Only the job at
// the head of the heap ever runs; every Update drains dt from exactly
// that job.
//
// runningArrivalTime shadows the arrival time of the job currently at
// the heap root. It must be read before the root is replaced (on
// completion, or when a shorter job preempts it), since Go's
// container/heap gives no O(1) peek-then-mutate-in-place guarantee once
// Pop is called.
type SRPT struct {
	counters
	dist                rng.Distribution
	jobs                srptHeap
	nextSeq             int64
	runningArrivalTime  float64
}

// NewSRPT builds a single-server SRPT queue. num_servers > 1 is not
// supported (spec.md section 4.1, SRPT is defined for a single server).
func NewSRPT(dist rng.Distribution, bufferCapacity int) (*SRPT, error) {
	if bufferCapacity == 0 {
		return nil, simerrors.ErrInvalidBuffer.WithDetails("srpt buffer_capacity cannot be 0")
	}
	s := &SRPT{dist: dist}
	s.numServers = 1
	s.bufferCapacity = bufferCapacityArg(bufferCapacity)
	s.jobs = make(srptHeap, 0)
	return s, nil
}

func (s *SRPT) Reset() {
	s.reset()
	s.jobs = s.jobs[:0]
	s.nextSeq = 0
	s.runningArrivalTime = 0
}

func (s *SRPT) IsFull() bool       { return s.isFull() }
func (s *SRPT) RecordArrival()     { s.recordArrival() }
func (s *SRPT) RecordRejection()   { s.recordRejection() }
func (s *SRPT) ResetLossCounters() { s.resetLossCounters() }
func (s *SRPT) Snapshot() Snapshot { return s.snapshot() }

func (s *SRPT) Clone() Server {
	clone, _ := NewSRPT(s.dist, rawBufferCapacity(s.bufferCapacity))
	return clone
}

func (s *SRPT) Arrival(src *rng.Source) {
	s.state++
	job := &srptJob{
		remaining:   s.dist.Sample(src),
		arrivalTime: s.clock,
		seq:         s.nextSeq,
	}
	s.nextSeq++
	heap.Push(&s.jobs, job)
	if s.jobs[0] == job {
		s.runningArrivalTime = job.arrivalTime
	}
}

// Update drains dt from the job currently at the heap root. The engine
// guarantees dt never exceeds QueryTTNC, so the root either finishes
// exactly or is left with positive remaining time; no other job's
// remaining changes, since SRPT serves one job at a time.
func (s *SRPT) Update(dt float64) bool {
	s.clock += dt
	if len(s.jobs) == 0 {
		return false
	}
	root := s.jobs[0]
	root.remaining -= dt
	if root.remaining > epsilon {
		return false
	}

	arrivalTime := s.runningArrivalTime
	heap.Pop(&s.jobs)
	s.state--
	s.recordCompletion(s.clock - arrivalTime)

	if len(s.jobs) > 0 {
		s.runningArrivalTime = s.jobs[0].arrivalTime
	}
	return true
}

func (s *SRPT) QueryTTNC() float64 {
	if len(s.jobs) == 0 {
		return math.Inf(1)
	}
	return s.jobs[0].remaining
}
