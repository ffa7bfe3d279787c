// Copyright 2025 James Ross

// Package config loads a queueing network topology from YAML plus
// environment overrides, following the same viper-backed
// defaultConfig/Load/Validate pattern used throughout this codebase.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/flyingrobots/queue-net-sim/internal/network"
	"github.com/flyingrobots/queue-net-sim/internal/rng"
	"github.com/flyingrobots/queue-net-sim/internal/server"
	"github.com/flyingrobots/queue-net-sim/internal/simerrors"
)

// DistributionConfig describes a service or arrival time distribution.
// Exactly the fields relevant to Kind are honored. Preset, when set,
// takes precedence over Kind and selects one of namedPresets by name.
type DistributionConfig struct {
	Preset string  `mapstructure:"preset"` // "steady", "bursty", "peak_hour", "trickle"; overrides Kind
	Kind   string  `mapstructure:"kind"`   // "exponential", "uniform", "bounded_pareto"
	Mu     float64 `mapstructure:"mu"`
	A      float64 `mapstructure:"a"`
	B      float64 `mapstructure:"b"`
	K      float64 `mapstructure:"k"`
	P      float64 `mapstructure:"p"`
	Alpha  float64 `mapstructure:"alpha"`
}

// namedPresets maps a preset name onto the DistributionConfig it stands
// for, so a topology file can say "preset: bursty" instead of spelling
// out a kind and its parameters. This is pure sugar over the
// constructors below: every preset still resolves to one of the three
// Distribution kinds, never a new arrival process.
var namedPresets = map[string]DistributionConfig{
	"steady":    {Kind: "exponential", Mu: 1.0},
	"bursty":    {Kind: "bounded_pareto", K: 0.1, P: 50.0, Alpha: 1.2},
	"peak_hour": {Kind: "exponential", Mu: 4.0},
	"trickle":   {Kind: "uniform", A: 2.0, B: 10.0},
}

// Build converts the config into an rng.Distribution. A non-empty
// Preset resolves through namedPresets before Kind is consulted.
func (d DistributionConfig) Build() (rng.Distribution, error) {
	if d.Preset != "" {
		resolved, ok := namedPresets[strings.ToLower(d.Preset)]
		if !ok {
			return rng.Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("unknown arrival preset " + d.Preset)
		}
		return resolved.Build()
	}
	switch strings.ToLower(d.Kind) {
	case "exponential", "":
		return rng.NewExponential(d.Mu)
	case "uniform":
		return rng.NewUniform(d.A, d.B)
	case "bounded_pareto":
		return rng.NewBoundedPareto(d.K, d.P, d.Alpha)
	default:
		return rng.Distribution{}, simerrors.ErrInvalidDistribution.WithDetails("unknown distribution kind " + d.Kind)
	}
}

// ServerConfig describes one server in the network.
type ServerConfig struct {
	Policy         string             `mapstructure:"policy"` // "fcfs", "srpt", "ps", "fb"
	Service        DistributionConfig `mapstructure:"service"`
	NumServers     int                `mapstructure:"num_servers"`
	BufferCapacity int                `mapstructure:"buffer_capacity"` // negative means unlimited
}

// Build constructs the server.Server this config describes.
func (s ServerConfig) Build() (server.Server, error) {
	dist, err := s.Service.Build()
	if err != nil {
		return nil, err
	}
	numServers := s.NumServers
	if numServers < 1 {
		numServers = 1
	}
	bufferCapacity := s.BufferCapacity
	if bufferCapacity == 0 {
		bufferCapacity = -1
	}
	switch strings.ToLower(s.Policy) {
	case "fcfs", "":
		return server.NewFCFS(dist, numServers, bufferCapacity)
	case "srpt":
		if s.NumServers > 1 {
			return nil, simerrors.ErrUnsupportedServerCount.WithDetails("srpt supports only num_servers=1")
		}
		return server.NewSRPT(dist, bufferCapacity)
	case "ps":
		return server.NewPS(dist, numServers, bufferCapacity)
	case "fb":
		if s.NumServers > 1 {
			return nil, simerrors.ErrUnsupportedServerCount.WithDetails("fb supports only num_servers=1")
		}
		return server.NewFB(dist, numServers, bufferCapacity)
	default:
		return nil, simerrors.ErrInvalidSimOptions.WithDetails("unknown policy " + s.Policy)
	}
}

// NetworkConfig describes an entire queueing network: its servers, the
// exogenous arrival distribution at server 0, and the routing matrix
// between servers (spec.md section 3, 6).
type NetworkConfig struct {
	Arrival DistributionConfig `mapstructure:"arrival"`
	Servers []ServerConfig     `mapstructure:"servers"`
	Routing [][]float64        `mapstructure:"routing"`
}

// Build constructs a *network.QueueSystem from the configured topology.
func (n NetworkConfig) Build() (*network.QueueSystem, error) {
	arrivalDist, err := n.Arrival.Build()
	if err != nil {
		return nil, err
	}
	servers := make([]server.Server, 0, len(n.Servers))
	for i, sc := range n.Servers {
		built, err := sc.Build()
		if err != nil {
			return nil, fmt.Errorf("server %d: %w", i, err)
		}
		servers = append(servers, built)
	}
	return network.NewQueueSystem(arrivalDist, n.Routing, servers...)
}

// SimulationConfig holds the run parameters for a single sim() or
// replicate() invocation (spec.md section 6).
type SimulationConfig struct {
	NumEvents          int           `mapstructure:"num_events"`
	Seed               uint64        `mapstructure:"seed"`
	Warmup             int           `mapstructure:"warmup"`
	TrackResponseTimes bool          `mapstructure:"track_response_times"`
	TrackEvents        bool          `mapstructure:"track_events"`
	NumReplications    int           `mapstructure:"num_replications"`
	WorkerCount        int           `mapstructure:"worker_count"`
	ConfidenceLevel    float64       `mapstructure:"confidence_level"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// ObservabilityConfig configures logging and the metrics/health server.
type ObservabilityConfig struct {
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
}

// Config is the top-level configuration loaded from YAML and env vars.
type Config struct {
	Network       NetworkConfig       `mapstructure:"network"`
	Simulation    SimulationConfig    `mapstructure:"simulation"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

func defaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Arrival: DistributionConfig{Kind: "exponential", Mu: 1.0},
			Servers: []ServerConfig{
				{Policy: "fcfs", Service: DistributionConfig{Kind: "exponential", Mu: 2.0}, NumServers: 1, BufferCapacity: -1},
			},
		},
		Simulation: SimulationConfig{
			NumEvents:       1_000_000,
			Warmup:          0,
			NumReplications: 30,
			ConfidenceLevel: 0.95,
			Timeout:         5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9090,
			LogLevel:    "info",
		},
	}
}

// Load reads configuration from a YAML file with environment overrides,
// falling back to defaultConfig when path does not exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("QUEUESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("network.arrival.kind", def.Network.Arrival.Kind)
	v.SetDefault("network.arrival.mu", def.Network.Arrival.Mu)

	v.SetDefault("simulation.num_events", def.Simulation.NumEvents)
	v.SetDefault("simulation.warmup", def.Simulation.Warmup)
	v.SetDefault("simulation.num_replications", def.Simulation.NumReplications)
	v.SetDefault("simulation.confidence_level", def.Simulation.ConfidenceLevel)
	v.SetDefault("simulation.timeout", def.Simulation.Timeout)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Network.Servers) == 0 {
		cfg.Network.Servers = def.Network.Servers
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToSimOptions converts the configured run parameters into
// network.SimOptions. A nonzero seed override takes precedence over any
// seed configured in YAML.
func (c *Config) ToSimOptions(seedOverride uint64) network.SimOptions {
	seed := c.Simulation.Seed
	seedSet := seed != 0
	if seedOverride != 0 {
		seed = seedOverride
		seedSet = true
	}
	return network.SimOptions{
		NumEvents:          c.Simulation.NumEvents,
		Seed:               seed,
		SeedSet:            seedSet,
		Warmup:             c.Simulation.Warmup,
		TrackResponseTimes: c.Simulation.TrackResponseTimes,
		TrackEvents:        c.Simulation.TrackEvents,
	}
}

// Validate checks config constraints and returns an error on invalid
// settings, before any RNG draw happens (spec.md section 6).
func Validate(cfg *Config) error {
	if len(cfg.Network.Servers) == 0 {
		return simerrors.ErrInvalidSimOptions.WithDetails("network.servers must be non-empty")
	}
	for i, s := range cfg.Network.Servers {
		if s.BufferCapacity == 0 {
			return simerrors.ErrInvalidBuffer.WithDetails(fmt.Sprintf("server %d: buffer_capacity cannot be 0", i))
		}
	}
	if cfg.Simulation.NumEvents < 1 {
		return simerrors.ErrInvalidSimOptions.WithDetails("simulation.num_events must be >= 1")
	}
	if cfg.Simulation.ConfidenceLevel <= 0 || cfg.Simulation.ConfidenceLevel >= 1 {
		return simerrors.ErrInvalidSimOptions.WithDetails("simulation.confidence_level must be in (0,1)")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return simerrors.ErrInvalidSimOptions.WithDetails("observability.metrics_port must be 1..65535")
	}
	return nil
}
