// Copyright 2025 James Ross
package server

import (
	"math"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// psJob is one job under processor sharing: its remaining service
// requirement and the clock value at which it arrived.
type psJob struct {
	remaining   float64
	arrivalTime float64
}

// PS implements k-server processor sharing (spec.md section 4.1): every
// job present receives an equal share of the min(k, state) available
// service capacity, so each job's remaining time drains at rate
// min(k, state) / state rather than at rate 1.
type PS struct {
	counters
	dist rng.Distribution
	jobs []psJob
}

// NewPS builds a PS(k) server.
func NewPS(dist rng.Distribution, numServers, bufferCapacity int) (*PS, error) {
	if numServers < 1 {
		numServers = 1
	}
	if bufferCapacity == 0 {
		return nil, simerrors.ErrInvalidBuffer.WithDetails("ps buffer_capacity cannot be 0")
	}
	p := &PS{dist: dist}
	p.numServers = numServers
	p.bufferCapacity = bufferCapacityArg(bufferCapacity)
	return p, nil
}

func (p *PS) Reset() {
	p.reset()
	p.jobs = p.jobs[:0]
}

func (p *PS) IsFull() bool       { return p.isFull() }
func (p *PS) RecordArrival()     { p.recordArrival() }
func (p *PS) RecordRejection()   { p.recordRejection() }
func (p *PS) ResetLossCounters() { p.resetLossCounters() }
func (p *PS) Snapshot() Snapshot { return p.snapshot() }

func (p *PS) Clone() Server {
	clone, _ := NewPS(p.dist, p.numServers, rawBufferCapacity(p.bufferCapacity))
	return clone
}

func (p *PS) Arrival(src *rng.Source) {
	p.state++
	p.jobs = append(p.jobs, psJob{remaining: p.dist.Sample(src), arrivalTime: p.clock})
}

// rate returns the fraction of one server's worth of service each
// present job receives: min(k, state) / state when state > 0.
func (p *PS) rate() float64 {
	if len(p.jobs) == 0 {
		return 0
	}
	k := float64(p.numServers)
	n := float64(len(p.jobs))
	if k > n {
		return 1
	}
	return k / n
}

// Update drains rate()*dt of wall-clock service from every present job.
// Since every job shares the same rate, the job with least remaining
// time finishes first; the engine never schedules a dt larger than
// QueryTTNC, so at most one job reaches zero per call.
func (p *PS) Update(dt float64) bool {
	p.clock += dt
	if len(p.jobs) == 0 {
		return false
	}
	share := p.rate() * dt
	minIdx := 0
	for i := range p.jobs {
		p.jobs[i].remaining -= share
		if p.jobs[i].remaining < p.jobs[minIdx].remaining {
			minIdx = i
		}
	}
	if p.jobs[minIdx].remaining > epsilon {
		return false
	}

	done := p.jobs[minIdx]
	p.jobs = append(p.jobs[:minIdx], p.jobs[minIdx+1:]...)
	p.state--
	p.recordCompletion(p.clock - done.arrivalTime)
	return true
}

func (p *PS) QueryTTNC() float64 {
	if len(p.jobs) == 0 {
		return math.Inf(1)
	}
	rate := p.rate()
	if rate <= 0 {
		return math.Inf(1)
	}
	min := math.Inf(1)
	for _, j := range p.jobs {
		if j.remaining < min {
			min = j.remaining
		}
	}
	return min / rate
}
