// Copyright 2025 James Ross
package server

import (
	"math"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// fcfsJob is one job in flight: its remaining service time (meaningful
// only once the job has opened a channel) and the clock value at which it
// arrived, kept for response-time bookkeeping.
type fcfsJob struct {
	remaining   float64
	arrivalTime float64
}

// FCFS implements first-come-first-served with k parallel channels
// (spec.md section 4.1). For k=1 it reduces to plain FCFS: arrival order
// equals completion order. Service times are sampled once, at arrival, so
// Update never needs access to the RNG stream.
type FCFS struct {
	counters
	dist      rng.Distribution
	channels  []fcfsJob
	waitQueue []fcfsJob // FIFO, arrived but no channel was free
}

// NewFCFS builds an FCFS(k) server. bufferCapacity < 0 means unlimited;
// bufferCapacity == 0 is invalid.
func NewFCFS(dist rng.Distribution, numServers, bufferCapacity int) (*FCFS, error) {
	if numServers < 1 {
		numServers = 1
	}
	if bufferCapacity == 0 {
		return nil, simerrors.ErrInvalidBuffer.WithDetails("fcfs buffer_capacity cannot be 0")
	}
	f := &FCFS{dist: dist}
	f.numServers = numServers
	f.bufferCapacity = bufferCapacityArg(bufferCapacity)
	f.channels = make([]fcfsJob, 0, numServers)
	return f, nil
}

func (f *FCFS) Reset() {
	f.reset()
	f.channels = f.channels[:0]
	f.waitQueue = f.waitQueue[:0]
}

func (f *FCFS) IsFull() bool       { return f.isFull() }
func (f *FCFS) RecordArrival()     { f.recordArrival() }
func (f *FCFS) RecordRejection()   { f.recordRejection() }
func (f *FCFS) ResetLossCounters() { f.resetLossCounters() }
func (f *FCFS) Snapshot() Snapshot { return f.snapshot() }

func (f *FCFS) Clone() Server {
	clone, _ := NewFCFS(f.dist, f.numServers, rawBufferCapacity(f.bufferCapacity))
	return clone
}

func (f *FCFS) Arrival(src *rng.Source) {
	f.state++
	job := fcfsJob{remaining: f.dist.Sample(src), arrivalTime: f.clock}
	if len(f.channels) < f.numServers {
		f.channels = append(f.channels, job)
		return
	}
	f.waitQueue = append(f.waitQueue, job)
}

// Update implements the FCFS service rule: every open channel drains dt
// of its remaining time; the channel that reaches (approximately) zero is
// the one that completes, since the engine never schedules a dt larger
// than the minimum remaining across all channels.
func (f *FCFS) Update(dt float64) bool {
	f.clock += dt
	if len(f.channels) == 0 {
		return false
	}
	minIdx := 0
	for i := range f.channels {
		f.channels[i].remaining -= dt
		if f.channels[i].remaining < f.channels[minIdx].remaining {
			minIdx = i
		}
	}
	if f.channels[minIdx].remaining > epsilon {
		return false
	}

	done := f.channels[minIdx]
	f.channels = append(f.channels[:minIdx], f.channels[minIdx+1:]...)
	f.state--
	f.recordCompletion(f.clock - done.arrivalTime)

	if len(f.waitQueue) > 0 {
		next := f.waitQueue[0]
		f.waitQueue = f.waitQueue[1:]
		f.channels = append(f.channels, next)
	}
	return true
}

func (f *FCFS) QueryTTNC() float64 {
	if len(f.channels) == 0 {
		return math.Inf(1)
	}
	min := math.Inf(1)
	for _, c := range f.channels {
		if c.remaining < min {
			min = c.remaining
		}
	}
	return min
}

// rawBufferCapacity converts the internal unlimited sentinel back to the
// public constructor convention (negative means unlimited).
func rawBufferCapacity(internal int) int {
	if internal == unlimited {
		return -1
	}
	return internal
}
