// Copyright 2025 James Ross

// Package eventlog records an ordered trace of arrivals, departures,
// routes, and rejections as parallel arrays rather than an array of
// structs, so the (external) visualization layer can bulk-consume a
// single aligned sequence per field (spec.md section 9, "Event log as
// parallel arrays").
package eventlog

// External is the sentinel server index spec.md section 3 reserves for
// "outside the system". It serves double duty as both the source of an
// external arrival and the destination of a departure (SYSTEM_EXIT).
const External = -1

// Kind identifies the type of a logged event.
type Kind int

const (
	Arrival Kind = iota
	Departure
	Route
	Rejection
)

func (k Kind) String() string {
	switch k {
	case Arrival:
		return "ARRIVAL"
	case Departure:
		return "DEPARTURE"
	case Route:
		return "ROUTE"
	case Rejection:
		return "REJECTION"
	default:
		return "UNKNOWN"
	}
}

// Log is an append-only ordered trace. Times, Kinds, From, To, and
// StateAfter are kept in lockstep: entry i describes the same event across
// all five slices.
type Log struct {
	Times      []float64
	Kinds      []Kind
	From       []int
	To         []int
	StateAfter []int
}

// New preallocates a Log sized for capacityHint entries, avoiding
// reallocation in the simulation hot path. The engine passes 2*num_events
// multiplied by the number of servers.
func New(capacityHint int) *Log {
	return &Log{
		Times:      make([]float64, 0, capacityHint),
		Kinds:      make([]Kind, 0, capacityHint),
		From:       make([]int, 0, capacityHint),
		To:         make([]int, 0, capacityHint),
		StateAfter: make([]int, 0, capacityHint),
	}
}

// Append records one event.
func (l *Log) Append(t float64, kind Kind, from, to, stateAfter int) {
	l.Times = append(l.Times, t)
	l.Kinds = append(l.Kinds, kind)
	l.From = append(l.From, from)
	l.To = append(l.To, to)
	l.StateAfter = append(l.StateAfter, stateAfter)
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	return len(l.Times)
}
