// Copyright 2025 James Ross
package rng

import (
	"math"

	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// Kind identifies which member of the Distribution sum type a value holds.
type Kind int

const (
	Exponential Kind = iota
	Uniform
	BoundedPareto
)

// Distribution is a closed sum type over {Exponential, Uniform,
// BoundedPareto}. It dispatches once per Sample call rather than through a
// heap-allocated interface, since samples are drawn in the engine's hot
// path (spec.md section 9, "Distributions as a sum type").
type Distribution struct {
	kind Kind

	// Exponential
	mu float64

	// Uniform
	a, b float64

	// BoundedPareto
	k, p, alpha float64
	// oneMinusRatioAlpha = 1 - (k/p)^alpha, precomputed for both the
	// normalizer and the inverse-CDF sampler.
	oneMinusRatioAlpha float64
}

// NewExponential builds Exponential(mu) with rate mu > 0.
func NewExponential(mu float64) (Distribution, error) {
	if mu <= 0 {
		return Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("exponential rate mu must be > 0")
	}
	return Distribution{kind: Exponential, mu: mu}, nil
}

// NewUniform builds Uniform(a, b) with a <= b.
func NewUniform(a, b float64) (Distribution, error) {
	if a > b {
		return Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("uniform requires a <= b")
	}
	return Distribution{kind: Uniform, a: a, b: b}, nil
}

// NewBoundedPareto builds BoundedPareto(k, p, alpha) with 0 < k < p and
// alpha > 0, precomputing the normalizer C = k^alpha / (1 - (k/p)^alpha).
func NewBoundedPareto(k, p, alpha float64) (Distribution, error) {
	if !(k > 0) {
		return Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("bounded pareto requires k > 0")
	}
	if !(p > k) {
		return Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("bounded pareto requires p > k")
	}
	if !(alpha > 0) {
		return Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("bounded pareto requires alpha > 0")
	}
	denom := 1 - math.Pow(k/p, alpha)
	return Distribution{kind: BoundedPareto, k: k, p: p, alpha: alpha, oneMinusRatioAlpha: denom}, nil
}

// Normalizer returns C = k^alpha / (1 - (k/p)^alpha) for a BoundedPareto
// distribution; it is informational (the pdf normalizer named in
// spec.md section 3) and not used by Sample itself, which works directly
// off the inverse CDF.
func (d Distribution) Normalizer() float64 {
	if d.kind != BoundedPareto {
		return 0
	}
	return math.Pow(d.k, d.alpha) / d.oneMinusRatioAlpha
}

// Sample draws one nonnegative real from the distribution using src as
// the sole source of randomness.
func (d Distribution) Sample(src *Source) float64 {
	switch d.kind {
	case Exponential:
		u := src.Float64()
		return -math.Log(u) / d.mu
	case Uniform:
		u := src.Float64()
		return d.a + u*(d.b-d.a)
	case BoundedPareto:
		u := src.Float64()
		return d.k / math.Pow(1-u*d.oneMinusRatioAlpha, 1/d.alpha)
	default:
		return 0
	}
}
