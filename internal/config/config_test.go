// Copyright 2025 James Ross
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1_000_000, cfg.Simulation.NumEvents)
	assert.Equal(t, 30, cfg.Simulation.NumReplications)
	assert.NotEmpty(t, cfg.Network.Servers)
}

func TestValidateRejectsEmptyServers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Network.Servers = nil
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsZeroBuffer(t *testing.T) {
	cfg := defaultConfig()
	cfg.Network.Servers[0].BufferCapacity = 0
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadConfidenceLevel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Simulation.ConfidenceLevel = 1.5
	assert.Error(t, Validate(cfg))
}

func TestNetworkConfigBuildsQueueSystem(t *testing.T) {
	cfg := defaultConfig()
	qs, err := cfg.Network.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, qs.NumServers())
}

func TestServerConfigRejectsSRPTWithMultipleServers(t *testing.T) {
	sc := ServerConfig{
		Policy:         "srpt",
		Service:        DistributionConfig{Kind: "exponential", Mu: 1.0},
		NumServers:     2,
		BufferCapacity: -1,
	}
	_, err := sc.Build()
	assert.Error(t, err)
}

func TestServerConfigRejectsFBWithMultipleServers(t *testing.T) {
	sc := ServerConfig{
		Policy:         "fb",
		Service:        DistributionConfig{Kind: "exponential", Mu: 1.0},
		NumServers:     2,
		BufferCapacity: -1,
	}
	_, err := sc.Build()
	assert.Error(t, err)
}

func TestDistributionConfigBuildsEachKind(t *testing.T) {
	cases := []DistributionConfig{
		{Kind: "exponential", Mu: 1.0},
		{Kind: "uniform", A: 1, B: 2},
		{Kind: "bounded_pareto", K: 1, P: 10, Alpha: 2},
	}
	for _, dc := range cases {
		_, err := dc.Build()
		assert.NoError(t, err)
	}
}

func TestDistributionConfigRejectsUnknownKind(t *testing.T) {
	_, err := DistributionConfig{Kind: "wat"}.Build()
	assert.Error(t, err)
}

func TestDistributionConfigResolvesEachPreset(t *testing.T) {
	for name := range namedPresets {
		_, err := DistributionConfig{Preset: name}.Build()
		assert.NoError(t, err, "preset %s", name)
	}
}

func TestDistributionConfigRejectsUnknownPreset(t *testing.T) {
	_, err := DistributionConfig{Preset: "nonexistent"}.Build()
	assert.Error(t, err)
}

func TestDistributionConfigPresetOverridesKind(t *testing.T) {
	dc := DistributionConfig{Preset: "steady", Kind: "wat"}
	_, err := dc.Build()
	assert.NoError(t, err)
}
