// Copyright 2025 James Ross
package network

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/flyingrobots/queue-net-sim/internal/eventlog"
	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/server"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// defaultNumEvents is the measurement-phase stopping point used when the
// caller does not specify one (spec.md section 6).
const defaultNumEvents = 1_000_000

// SimOptions configures a single call to QueueSystem.Sim.
type SimOptions struct {
	NumEvents          int
	Seed               uint64
	SeedSet            bool // false selects a fresh random seed
	Warmup             int
	TrackResponseTimes bool
	TrackEvents        bool
}

// DefaultSimOptions returns the documented defaults: 10^6 events, a fresh
// seed, no warmup, no tracking (spec.md section 6).
func DefaultSimOptions() SimOptions {
	return SimOptions{NumEvents: defaultNumEvents}
}

// SimResult is the output of one simulation run.
type SimResult struct {
	MeanN               float64
	MeanT               float64
	MeasurementDuration float64
	ResponseTimes       []float64
	EventLog            *eventlog.Log
}

// QueueSystem owns a set of servers, the exogenous arrival distribution,
// and the routing matrix between them (spec.md section 3, "QueueSystem").
type QueueSystem struct {
	servers     []server.Server
	arrivalDist rng.Distribution
	routing     Matrix

	// Fields populated by the most recent Sim call.
	T             float64
	ResponseTimes []float64
	EventLog      *eventlog.Log
}

// NewQueueSystem builds a network from an arrival distribution, a
// (possibly empty, for tandem) routing matrix, and an initial set of
// servers (spec.md section 6, "Construction").
func NewQueueSystem(arrivalDist rng.Distribution, routingRows [][]float64, servers ...server.Server) (*QueueSystem, error) {
	m, err := NewMatrix(routingRows, len(servers))
	if err != nil {
		return nil, err
	}
	return &QueueSystem{
		servers:     append([]server.Server(nil), servers...),
		arrivalDist: arrivalDist,
		routing:     m,
	}, nil
}

// AddServer appends a server. Any previously validated routing matrix no
// longer matches the new server count, so routing reverts to strict
// tandem until UpdateRoutingMatrix is called again.
func (q *QueueSystem) AddServer(s server.Server) {
	q.servers = append(q.servers, s)
	q.routing = Matrix{n: len(q.servers)}
}

// UpdateRoutingMatrix validates and installs a new routing matrix sized
// for the system's current server count.
func (q *QueueSystem) UpdateRoutingMatrix(rows [][]float64) error {
	m, err := NewMatrix(rows, len(q.servers))
	if err != nil {
		return err
	}
	q.routing = m
	return nil
}

// NumServers reports how many servers are in the network.
func (q *QueueSystem) NumServers() int { return len(q.servers) }

// ServerSnapshots returns the post-run readable fields of every server in
// network order (spec.md section 6).
func (q *QueueSystem) ServerSnapshots() []server.Snapshot {
	snaps := make([]server.Snapshot, len(q.servers))
	for i, s := range q.servers {
		snaps[i] = s.Snapshot()
	}
	return snaps
}

// Clone returns a system with freshly blueprint-cloned servers (no
// dynamic state) sharing the same immutable arrival distribution and
// routing matrix. Used by the replicator to hand each worker a private
// copy (spec.md section 4.4, section 9 "shared ownership of servers").
func (q *QueueSystem) Clone() *QueueSystem {
	clones := make([]server.Server, len(q.servers))
	for i, s := range q.servers {
		clones[i] = s.Clone()
	}
	return &QueueSystem{
		servers:     clones,
		arrivalDist: q.arrivalDist,
		routing:     q.routing,
	}
}

func autoSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failures are effectively unobservable on real
		// systems; fall back to a fixed, still-deterministic value
		// rather than propagating an error from a non-essential path.
		return 0x9E3779B97F4A7C15
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Sim drives the network through warmup and measurement phases
// (spec.md section 4.2) and returns the time-averaged estimates.
func (q *QueueSystem) Sim(opts SimOptions) (SimResult, error) {
	if len(q.servers) == 0 {
		return SimResult{}, simerrors.ErrInvalidSimOptions.WithDetails("queue system has no servers")
	}
	numEvents := opts.NumEvents
	if numEvents <= 0 {
		numEvents = defaultNumEvents
	}
	seed := opts.Seed
	if !opts.SeedSet {
		seed = autoSeed()
	}
	src := rng.NewSource(seed)

	for _, s := range q.servers {
		s.Reset()
	}

	run := &runState{
		clock: 0,
		total: 0,
		ttna:  q.arrivalDist.Sample(src),
	}

	warmupDone := 0
	for warmupDone < opts.Warmup {
		warmupDone += q.tick(src, run, false, false, nil, false, nil)
	}
	for _, s := range q.servers {
		s.ResetLossCounters()
	}

	var responseTimes []float64
	if opts.TrackResponseTimes {
		responseTimes = make([]float64, 0, numEvents)
	}
	var log *eventlog.Log
	if opts.TrackEvents {
		// A job can hop through every server before it exits, logging one
		// Route entry per hop plus one external-arrival entry, none of
		// which count toward numCompletions (only exits and internal-route
		// rejections do). Scale the hint by server count so a tandem
		// network doesn't grow past it on the hot path; feedback routing
		// can still exceed it.
		log = eventlog.New(2 * numEvents * len(q.servers))
	}

	measurementStart := run.clock
	numCompletions := 0
	for numCompletions < numEvents {
		numCompletions += q.tick(src, run, true, opts.TrackResponseTimes, &responseTimes, opts.TrackEvents, log)
	}
	clockMeasurement := run.clock - measurementStart

	meanN := 0.0
	if clockMeasurement > 0 {
		meanN = run.areaN / clockMeasurement
	}
	meanT := run.areaN / math.Max(1, float64(numCompletions))

	q.T = meanT
	q.ResponseTimes = responseTimes
	q.EventLog = log

	return SimResult{
		MeanN:               meanN,
		MeanT:               meanT,
		MeasurementDuration: clockMeasurement,
		ResponseTimes:       responseTimes,
		EventLog:            log,
	}, nil
}

// runState carries the mutable engine state threaded through tick calls:
// the shared clock, network-wide job count, time to next external
// arrival, and (during the measurement phase) accumulated area-under-N.
type runState struct {
	clock float64
	total int
	ttna  float64
	areaN float64
}

// tick executes one iteration of the loop in spec.md section 4.2: it
// advances the clock by the minimum of the next server completion and
// the next external arrival, lets every server absorb that much time,
// routes any completed job, and fires the external arrival if its
// horizon was reached. It returns the number of events that count toward
// the warmup/measurement completion counter: an exit-routed departure or
// an internal-route rejection, but never an external-arrival rejection
// (spec.md section 4.2, step 7 and the warmup note in the same section).
func (q *QueueSystem) tick(src *rng.Source, run *runState, accumulate, trackResponseTimes bool, responseTimes *[]float64, trackEvents bool, log *eventlog.Log) int {
	ttncNet := math.Inf(1)
	for _, s := range q.servers {
		if t := s.QueryTTNC(); t < ttncNet {
			ttncNet = t
		}
	}
	ttnaOriginal := run.ttna
	dt := math.Min(ttncNet, ttnaOriginal)
	run.clock += dt
	if accumulate {
		run.areaN += float64(run.total) * dt
	}

	completions := 0

	completedIdx := -1
	for i := range q.servers {
		if q.servers[i].Update(dt) {
			completedIdx = i
		}
	}
	if completedIdx >= 0 {
		i := completedIdx
		snap := q.servers[i].Snapshot()
		dest := q.routing.RouteFrom(i, src)
		if dest == Exit {
			run.total--
			completions++
			if accumulate {
				if trackResponseTimes {
					*responseTimes = append(*responseTimes, snap.LastResponseTime)
				}
				if trackEvents {
					log.Append(run.clock, eventlog.Departure, i, eventlog.External, run.total)
				}
			}
		} else {
			q.servers[dest].RecordArrival()
			if q.servers[dest].IsFull() {
				q.servers[dest].RecordRejection()
				run.total--
				completions++
				if accumulate && trackEvents {
					log.Append(run.clock, eventlog.Rejection, i, dest, run.total)
				}
			} else {
				q.servers[dest].Arrival(src)
				if accumulate && trackEvents {
					log.Append(run.clock, eventlog.Route, i, dest, run.total)
				}
			}
		}
	}

	if ttnaOriginal <= ttncNet {
		q.servers[0].RecordArrival()
		if q.servers[0].IsFull() {
			q.servers[0].RecordRejection()
			if accumulate && trackEvents {
				log.Append(run.clock, eventlog.Rejection, eventlog.External, 0, run.total)
			}
		} else {
			run.total++
			q.servers[0].Arrival(src)
			if accumulate && trackEvents {
				log.Append(run.clock, eventlog.Arrival, eventlog.External, 0, run.total)
			}
		}
		run.ttna = q.arrivalDist.Sample(src)
	} else {
		run.ttna = ttnaOriginal - dt
	}

	return completions
}
