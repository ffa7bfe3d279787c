// Copyright 2025 James Ross
package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/server"
)

func mustExp(t *testing.T, mu float64) rng.Distribution {
	t.Helper()
	d, err := rng.NewExponential(mu)
	require.NoError(t, err)
	return d
}

func TestMatrixEmptyIsTandem(t *testing.T) {
	m, err := NewMatrix(nil, 3)
	require.NoError(t, err)
	assert.True(t, m.IsTandem())
}

func TestMatrixValidatesRowSums(t *testing.T) {
	_, err := NewMatrix([][]float64{{0.5, 0.6}}, 1)
	assert.Error(t, err)
}

func TestMatrixValidatesShape(t *testing.T) {
	_, err := NewMatrix([][]float64{{1}}, 2)
	assert.Error(t, err)
}

func TestMM1FCFSMatchesAnalytical(t *testing.T) {
	lambda, mu := 1.0, 2.0
	arrival := mustExp(t, lambda)
	svc := mustExp(t, mu)
	fcfs, err := server.NewFCFS(svc, 1, -1)
	require.NoError(t, err)

	qs, err := NewQueueSystem(arrival, nil, fcfs)
	require.NoError(t, err)

	res, err := qs.Sim(SimOptions{NumEvents: 200_000, Seed: 42, SeedSet: true, Warmup: 2_000})
	require.NoError(t, err)

	rho := lambda / mu
	wantT := 1 / (mu - lambda)
	wantN := rho / (1 - rho)
	assert.InEpsilon(t, wantT, res.MeanT, 0.1)
	assert.InEpsilon(t, wantN, res.MeanN, 0.15)
}

func TestSeedDeterminism(t *testing.T) {
	build := func() *QueueSystem {
		svc := mustExp(t, 2.0)
		arrival := mustExp(t, 1.0)
		fcfs, err := server.NewFCFS(svc, 1, -1)
		require.NoError(t, err)
		qs, err := NewQueueSystem(arrival, nil, fcfs)
		require.NoError(t, err)
		return qs
	}

	opts := SimOptions{NumEvents: 10_000, Seed: 7, SeedSet: true, TrackResponseTimes: true, TrackEvents: true}
	r1, err := build().Sim(opts)
	require.NoError(t, err)
	r2, err := build().Sim(opts)
	require.NoError(t, err)

	assert.Equal(t, r1.MeanN, r2.MeanN)
	assert.Equal(t, r1.MeanT, r2.MeanT)
	assert.Equal(t, r1.ResponseTimes, r2.ResponseTimes)
	assert.Equal(t, r1.EventLog.Times, r2.EventLog.Times)
}

func TestZeroOverheadWhenTrackingDisabled(t *testing.T) {
	svc := mustExp(t, 2.0)
	arrival := mustExp(t, 1.0)
	fcfs, err := server.NewFCFS(svc, 1, -1)
	require.NoError(t, err)
	qs, err := NewQueueSystem(arrival, nil, fcfs)
	require.NoError(t, err)

	res, err := qs.Sim(SimOptions{NumEvents: 5_000, Seed: 1, SeedSet: true})
	require.NoError(t, err)
	assert.Empty(t, res.ResponseTimes)
	assert.Nil(t, res.EventLog)
}

func TestEventLogConsistency(t *testing.T) {
	svc := mustExp(t, 2.0)
	arrival := mustExp(t, 1.0)
	fcfs, err := server.NewFCFS(svc, 1, -1)
	require.NoError(t, err)
	qs, err := NewQueueSystem(arrival, nil, fcfs)
	require.NoError(t, err)

	res, err := qs.Sim(SimOptions{NumEvents: 5_000, Seed: 3, SeedSet: true, TrackEvents: true})
	require.NoError(t, err)

	log := res.EventLog
	require.NotNil(t, log)
	n := log.Len()
	require.Equal(t, n, len(log.Kinds))
	require.Equal(t, n, len(log.From))
	require.Equal(t, n, len(log.To))
	require.Equal(t, n, len(log.StateAfter))

	for i := 1; i < n; i++ {
		assert.GreaterOrEqual(t, log.Times[i], log.Times[i-1])
	}
	for i := 0; i < n; i++ {
		assert.GreaterOrEqual(t, log.StateAfter[i], 0)
	}
}

func TestLittlesLawHolds(t *testing.T) {
	svc := mustExp(t, 2.0)
	arrival := mustExp(t, 1.0)
	fcfs, err := server.NewFCFS(svc, 1, -1)
	require.NoError(t, err)
	qs, err := NewQueueSystem(arrival, nil, fcfs)
	require.NoError(t, err)

	res, err := qs.Sim(SimOptions{NumEvents: 100_000, Seed: 11, SeedSet: true, Warmup: 1_000})
	require.NoError(t, err)

	snaps := qs.ServerSnapshots()
	admitted := float64(snaps[0].NumArrivals - snaps[0].NumRejected)
	lambdaEff := admitted / res.MeasurementDuration
	assert.InEpsilon(t, res.MeanN, lambdaEff*res.MeanT, 0.15)
}

func TestErlangBLossProbability(t *testing.T) {
	lambda, mu := 2.0, 1.0
	c := 3
	arrival := mustExp(t, lambda)
	svc := mustExp(t, mu)
	fcfs, err := server.NewFCFS(svc, c, c)
	require.NoError(t, err)
	qs, err := NewQueueSystem(arrival, nil, fcfs)
	require.NoError(t, err)

	_, err = qs.Sim(SimOptions{NumEvents: 300_000, Seed: 99, SeedSet: true, Warmup: 2_000})
	require.NoError(t, err)

	snap := qs.ServerSnapshots()[0]
	loss := float64(snap.NumRejected) / float64(snap.NumArrivals)

	want := erlangB(c, lambda/mu)
	assert.InDelta(t, want, loss, 0.03)
}

// erlangB computes the Erlang-B blocking probability via the standard
// recursion B(0,a)=1, B(c,a) = a*B(c-1,a) / (c + a*B(c-1,a)).
func erlangB(c int, a float64) float64 {
	b := 1.0
	for k := 1; k <= c; k++ {
		b = a * b / (float64(k) + a*b)
	}
	return b
}
