// Copyright 2025 James Ross

// Package network implements the time-advance event loop, routing, and
// the public QueueSystem construction API (spec.md sections 4.2-4.3, 6).
package network

import (
	"fmt"

	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// rowSumTolerance is the slack allowed around 1.0 when validating that a
// routing matrix row is stochastic (spec.md section 3).
const rowSumTolerance = 1e-9

// Exit is the destination index RouteFrom returns when a job leaves the
// network, whether by design (the matrix routes it to exit) or by
// numerical underflow (spec.md section 4.3).
const Exit = -1

// Matrix is a row-stochastic routing table: M[i][j] is the probability a
// job completing at server i is routed to server j, where j == n (one
// past the last valid server index) means exit. An empty Matrix means
// strict tandem: server i always routes to i+1, and the last server
// always exits (spec.md section 3).
type Matrix struct {
	rows [][]float64
	n    int
}

// NewMatrix validates and wraps a dense (n x (n+1)) routing table. An
// empty or nil rows slice yields strict-tandem routing for n servers.
func NewMatrix(rows [][]float64, n int) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{n: n}, nil
	}
	if len(rows) != n {
		return Matrix{}, simerrors.ErrInvalidRouting.WithDetails(
			fmt.Sprintf("expected %d rows, got %d", n, len(rows)))
	}
	for i, row := range rows {
		if len(row) != n+1 {
			return Matrix{}, simerrors.ErrInvalidRouting.WithDetails(
				fmt.Sprintf("row %d: expected length %d, got %d", i, n+1, len(row)))
		}
		var sum float64
		for _, p := range row {
			if p < 0 {
				return Matrix{}, simerrors.ErrInvalidRouting.WithDetails(
					fmt.Sprintf("row %d: negative probability %g", i, p))
			}
			sum += p
		}
		if sum < 1-rowSumTolerance || sum > 1+rowSumTolerance {
			return Matrix{}, simerrors.ErrInvalidRouting.WithDetails(
				fmt.Sprintf("row %d: sums to %g, want 1 +/- %g", i, sum, rowSumTolerance))
		}
	}
	return Matrix{rows: rows, n: n}, nil
}

// IsTandem reports whether this matrix was built empty, meaning strict
// tandem routing applies.
func (m Matrix) IsTandem() bool { return len(m.rows) == 0 }

// RouteFrom draws one uniform from src and returns the destination for a
// job completing at server i: a server index in [0, n), or Exit.
// Strict-tandem routing never consumes a uniform, since it is
// deterministic; probabilistic routing consumes exactly one (spec.md
// section 4.3).
func (m Matrix) RouteFrom(i int, src *rng.Source) int {
	if m.IsTandem() {
		if i+1 >= m.n {
			return Exit
		}
		return i + 1
	}
	u := src.Float64()
	var cumulative float64
	row := m.rows[i]
	for j, p := range row {
		cumulative += p
		if cumulative > u {
			if j == m.n {
				return Exit
			}
			return j
		}
	}
	// Underflow: the prefix sum never strictly exceeded u, which can
	// happen at an exact row sum of 1 with floating-point rounding.
	// Default to exit (spec.md section 4.3).
	return Exit
}
