// Copyright 2025 James Ross
package server

import (
	"math"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// fbEpsilon decides when two jobs' attained service are "the same level"
// for membership in the active set. It is tighter than the package-level
// epsilon because FB compares accumulated sums across many small Update
// steps, which accrues more floating-point drift than a single
// remaining-time comparison.
const fbEpsilon = 1e-12

// fbJob is one job under foreground-background scheduling: its sampled
// total service requirement, the service it has accumulated so far, and
// its arrival time for response-time bookkeeping.
type fbJob struct {
	remaining   float64
	attained    float64
	arrivalTime float64
}

// FB implements foreground-background (least-attained-service)
// scheduling (spec.md section 4.1): capacity is shared equally among the
// jobs with the least accumulated service so far, the "active set".
// The active set grows when its attained service reaches the next
// background level (a level crossing); a job leaves it when it completes
// or when a new arrival, with zero attained service, becomes the sole
// least-served job.
type FB struct {
	counters
	dist rng.Distribution
	jobs []fbJob
}

// NewFB builds a single-server FB queue. num_servers > 1 is not
// supported: FB is defined over one shared rate of 1/|active|, and
// num_servers is honored only by FCFS and PS (spec.md section 6, 7).
func NewFB(dist rng.Distribution, numServers, bufferCapacity int) (*FB, error) {
	if numServers < 1 {
		numServers = 1
	}
	if numServers > 1 {
		return nil, simerrors.ErrUnsupportedServerCount.WithDetails("fb supports only num_servers=1")
	}
	if bufferCapacity == 0 {
		return nil, simerrors.ErrInvalidBuffer.WithDetails("fb buffer_capacity cannot be 0")
	}
	f := &FB{dist: dist}
	f.numServers = numServers
	f.bufferCapacity = bufferCapacityArg(bufferCapacity)
	return f, nil
}

func (f *FB) Reset() {
	f.reset()
	f.jobs = f.jobs[:0]
}

func (f *FB) IsFull() bool       { return f.isFull() }
func (f *FB) RecordArrival()     { f.recordArrival() }
func (f *FB) RecordRejection()   { f.recordRejection() }
func (f *FB) ResetLossCounters() { f.resetLossCounters() }
func (f *FB) Snapshot() Snapshot { return f.snapshot() }

func (f *FB) Clone() Server {
	clone, _ := NewFB(f.dist, f.numServers, rawBufferCapacity(f.bufferCapacity))
	return clone
}

func (f *FB) Arrival(src *rng.Source) {
	f.state++
	f.jobs = append(f.jobs, fbJob{remaining: f.dist.Sample(src), arrivalTime: f.clock})
}

// activeSet returns the indices of jobs attained within fbEpsilon of the
// minimum attained service, along with that minimum, and the minimum
// attained service among the remaining background jobs (+Inf if none).
func (f *FB) activeSet() (active []int, minAttained, bgLevel float64) {
	minAttained = math.Inf(1)
	for _, j := range f.jobs {
		if j.attained < minAttained {
			minAttained = j.attained
		}
	}
	bgLevel = math.Inf(1)
	for i, j := range f.jobs {
		if j.attained-minAttained <= fbEpsilon {
			active = append(active, i)
		} else if j.attained < bgLevel {
			bgLevel = j.attained
		}
	}
	return active, minAttained, bgLevel
}

// Update advances the clock by dt, the horizon QueryTTNC last reported.
// Every active job accrues its equal share of dt; at most one event —
// either a completion or a level crossing that changes active-set
// membership — falls exactly on that horizon. Only completions are
// reported back to the engine.
func (f *FB) Update(dt float64) bool {
	f.clock += dt
	if len(f.jobs) == 0 {
		return false
	}
	active, _, _ := f.activeSet()
	n := len(active)
	share := dt / float64(n)
	for _, idx := range active {
		f.jobs[idx].attained += share
	}

	completedIdx := -1
	for _, idx := range active {
		if f.jobs[idx].remaining-f.jobs[idx].attained <= fbEpsilon {
			completedIdx = idx
			break
		}
	}
	if completedIdx == -1 {
		return false
	}

	done := f.jobs[completedIdx]
	f.jobs = append(f.jobs[:completedIdx], f.jobs[completedIdx+1:]...)
	f.state--
	f.recordCompletion(f.clock - done.arrivalTime)
	return true
}

func (f *FB) QueryTTNC() float64 {
	if len(f.jobs) == 0 {
		return math.Inf(1)
	}
	active, minAttained, bgLevel := f.activeSet()
	n := len(active)
	perJobRate := 1.0 / float64(n)

	completionHorizon := math.Inf(1)
	for _, idx := range active {
		remain := f.jobs[idx].remaining - f.jobs[idx].attained
		horizon := remain / perJobRate
		if horizon < completionHorizon {
			completionHorizon = horizon
		}
	}

	levelCrossHorizon := math.Inf(1)
	if !math.IsInf(bgLevel, 1) {
		levelCrossHorizon = (bgLevel - minAttained) / perJobRate
	}

	if completionHorizon < levelCrossHorizon {
		return completionHorizon
	}
	return levelCrossHorizon
}
