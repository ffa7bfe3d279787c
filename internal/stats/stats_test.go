// Copyright 2025 James Ross
package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanStdDev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(xs), 1e-9)
	assert.InDelta(t, 2.138089935, StdDev(xs), 1e-6)
}

func TestStdDevDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{1}))
}

func TestNormalQuantileSymmetric(t *testing.T) {
	assert.InDelta(t, 0, normalQuantile(0.5), 1e-9)
	assert.InDelta(t, 1.959963985, normalQuantile(0.975), 1e-6)
	assert.InDelta(t, -1.959963985, normalQuantile(0.025), 1e-6)
}

func TestTQuantileApproachesNormalForLargeDF(t *testing.T) {
	large := tQuantile(10000, 0.975)
	assert.InDelta(t, normalQuantile(0.975), large, 0.01)
}

func TestConfidenceIntervalCoversKnownMean(t *testing.T) {
	xs := []float64{9.8, 10.1, 9.9, 10.2, 10.0, 9.7, 10.3, 9.95, 10.05, 10.0}
	ci := ConfidenceInterval(xs, 0.05)
	require.True(t, ci.Lower < ci.Mean && ci.Mean < ci.Upper)
	assert.InDelta(t, Mean(xs), ci.Mean, 1e-9)
	assert.True(t, ci.Lower < 10.0 && ci.Upper > 10.0)
}

func TestConfidenceIntervalDegenerateSingleSample(t *testing.T) {
	ci := ConfidenceInterval([]float64{42.0}, 0.05)
	assert.Equal(t, 42.0, ci.Mean)
	assert.Equal(t, 42.0, ci.Lower)
	assert.Equal(t, 42.0, ci.Upper)
}

func TestLossProbability(t *testing.T) {
	assert.InDelta(t, 0.5, LossProbability(5, 10), 1e-9)
	assert.InDelta(t, 0.0, LossProbability(0, 0), 1e-9)
}

func TestNormalQuantileTailsAreInfinite(t *testing.T) {
	assert.True(t, math.IsInf(normalQuantile(0), -1))
	assert.True(t, math.IsInf(normalQuantile(1), 1))
}
