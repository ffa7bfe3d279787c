// Copyright 2025 James Ross

// Package seed maps a (base_seed, replication index) pair to a
// per-replication seed via SplitMix64, so that bit-for-bit reproducibility
// holds across implementations (spec.md section 9, "Per-replication
// seeds").
package seed

const goldenGamma = 0x9E3779B97F4A7C15

// mix64 is the same SplitMix64 avalanche finalizer used by rng.Source; it
// is duplicated rather than imported so seed derivation has no dependency
// on the streaming RNG's internal state shape, and stays a pure function
// of its input.
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Derive computes seed_i = SplitMix64(base_seed + i * 0x9E3779B97F4A7C15).
func Derive(baseSeed uint64, index int) uint64 {
	return mix64(baseSeed + uint64(index)*goldenGamma)
}
