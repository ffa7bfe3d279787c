// Copyright 2025 James Ross
package server

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
)

func mustExp(t *testing.T, mu float64) rng.Distribution {
	t.Helper()
	d, err := rng.NewExponential(mu)
	require.NoError(t, err)
	return d
}

func TestFCFSSingleChannelCompletesJob(t *testing.T) {
	dist := mustExp(t, 1.0)
	f, err := NewFCFS(dist, 1, -1)
	require.NoError(t, err)

	src := rng.NewSource(1)
	f.Arrival(src)
	assert.Equal(t, 1, f.Snapshot().State)
	assert.False(t, math.IsInf(f.QueryTTNC(), 1))

	ttnc := f.QueryTTNC()
	completed := f.Update(ttnc)
	assert.True(t, completed)
	assert.Equal(t, 0, f.Snapshot().State)
	assert.Equal(t, 1, f.Snapshot().NumCompletions)
}

func TestFCFSRejectsWhenFull(t *testing.T) {
	dist := mustExp(t, 1.0)
	f, err := NewFCFS(dist, 1, 1)
	require.NoError(t, err)

	src := rng.NewSource(2)
	f.Arrival(src)
	assert.True(t, f.IsFull())
}

func TestFCFSInvalidBuffer(t *testing.T) {
	dist := mustExp(t, 1.0)
	_, err := NewFCFS(dist, 1, 0)
	assert.Error(t, err)
}

func TestFCFSClonesWithoutDynamicState(t *testing.T) {
	dist := mustExp(t, 1.0)
	f, err := NewFCFS(dist, 2, 5)
	require.NoError(t, err)
	f.Arrival(rng.NewSource(1))

	clone := f.Clone().(*FCFS)
	assert.Equal(t, 0, clone.Snapshot().State)
	assert.Equal(t, f.numServers, clone.numServers)
	assert.Equal(t, f.bufferCapacity, clone.bufferCapacity)
}

func TestSRPTLongerArrivalDoesNotPreempt(t *testing.T) {
	dist, err := rng.NewUniform(10, 10)
	require.NoError(t, err)
	s, err := NewSRPT(dist, -1)
	require.NoError(t, err)

	src := rng.NewSource(1)
	s.Arrival(src) // remaining=10
	assert.InDelta(t, 10, s.QueryTTNC(), 1e-9)

	s.Update(3) // remaining=7
	s.Arrival(src)
	// The running job has remaining 7 and the new arrival 10; the job
	// with least remaining stays in service.
	assert.InDelta(t, 7, s.QueryTTNC(), 1e-9)
}

func TestSRPTSingleServerOnly(t *testing.T) {
	dist := mustExp(t, 1.0)
	s, err := NewSRPT(dist, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.numServers)
}

func TestPSRateSlowsWhenOverSubscribed(t *testing.T) {
	dist, err := rng.NewUniform(4, 4)
	require.NoError(t, err)
	p, err := NewPS(dist, 1, -1)
	require.NoError(t, err)

	src := rng.NewSource(1)
	p.Arrival(src)
	p.Arrival(src)
	// Two jobs sharing one server: each drains at rate 1/2.
	assert.InDelta(t, 8, p.QueryTTNC(), 1e-9)
}

func TestPSFullCapacityServesAtFullRate(t *testing.T) {
	dist, err := rng.NewUniform(4, 4)
	require.NoError(t, err)
	p, err := NewPS(dist, 2, -1)
	require.NoError(t, err)

	src := rng.NewSource(1)
	p.Arrival(src)
	p.Arrival(src)
	// Two servers, two jobs: each gets full rate 1.
	assert.InDelta(t, 4, p.QueryTTNC(), 1e-9)
}

func TestFBNewArrivalJoinsActiveSet(t *testing.T) {
	dist, err := rng.NewUniform(6, 6)
	require.NoError(t, err)
	f, err := NewFB(dist, 1, -1)
	require.NoError(t, err)

	src := rng.NewSource(1)
	f.Arrival(src)
	f.Update(2) // attained=2, remaining-to-go=4
	f.Arrival(src)
	// The new job has attained=0 and the old one attained=2, so the new
	// arrival alone forms the active set and gets the full rate.
	active, _, _ := f.activeSet()
	assert.Len(t, active, 1)
}

func TestFBCompletesAfterFullService(t *testing.T) {
	dist, err := rng.NewUniform(5, 5)
	require.NoError(t, err)
	f, err := NewFB(dist, 1, -1)
	require.NoError(t, err)

	src := rng.NewSource(1)
	f.Arrival(src)
	for i := 0; i < 50 && f.Snapshot().NumCompletions == 0; i++ {
		dt := f.QueryTTNC()
		f.Update(dt)
	}
	assert.Equal(t, 1, f.Snapshot().NumCompletions)
}

func TestFBRejectsMultipleServers(t *testing.T) {
	dist := mustExp(t, 1.0)
	_, err := NewFB(dist, 2, -1)
	assert.Error(t, err)
}

func TestResetLossCountersPreservesDynamicState(t *testing.T) {
	dist := mustExp(t, 1.0)
	f, err := NewFCFS(dist, 1, -1)
	require.NoError(t, err)
	f.RecordArrival()
	f.RecordRejection()
	f.Arrival(rng.NewSource(1))

	f.ResetLossCounters()
	snap := f.Snapshot()
	assert.Equal(t, 0, snap.NumArrivals)
	assert.Equal(t, 0, snap.NumRejected)
	assert.Equal(t, 1, snap.State)
}

func TestResetClearsEverything(t *testing.T) {
	dist := mustExp(t, 1.0)
	f, err := NewFCFS(dist, 1, -1)
	require.NoError(t, err)
	f.Arrival(rng.NewSource(1))
	f.RecordArrival()

	f.Reset()
	snap := f.Snapshot()
	assert.Equal(t, 0, snap.State)
	assert.Equal(t, 0, snap.NumArrivals)
	assert.True(t, math.IsInf(f.QueryTTNC(), 1))
}
