// Copyright 2025 James Ross

// Command queuesimctl loads a queueing network topology from YAML,
// drives either a single simulation or a full replication batch, and
// prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/flyingrobots/queue-net-sim/internal/config"
	"github.com/flyingrobots/queue-net-sim/internal/obs"
	"github.com/flyingrobots/queue-net-sim/internal/replicate"
	"github.com/flyingrobots/queue-net-sim/internal/stats"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "queuesimctl:", err)
		os.Exit(1)
	}
}

type runReport struct {
	RunID            string    `json:"run_id"`
	MeanN            float64   `json:"mean_n,omitempty"`
	MeanT            float64   `json:"mean_t,omitempty"`
	RawT             []float64 `json:"raw_t,omitempty"`
	RawN             []float64 `json:"raw_n,omitempty"`
	ConfidenceLower  float64   `json:"confidence_lower,omitempty"`
	ConfidenceUpper  float64   `json:"confidence_upper,omitempty"`
	ReplicationCount int       `json:"replication_count,omitempty"`
}

func run(args []string) error {
	fs := flag.NewFlagSet("queuesimctl", flag.ExitOnError)
	configPath := fs.String("config", "queuesim.yaml", "path to network topology YAML")
	replicateMode := fs.Bool("replicate", false, "run a full replication batch instead of a single simulation")
	numEvents := fs.Int("num-events", 0, "override simulation.num_events (0 keeps config value)")
	numReplications := fs.Int("num-replications", 0, "override simulation.num_replications (0 keeps config value)")
	seed := fs.Uint64("seed", 0, "base seed (0 keeps simulation.seed for a single run if set; otherwise a fresh random seed)")
	metricsAddr := fs.Bool("metrics", false, "start the Prometheus /metrics and health server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if *numEvents > 0 {
		cfg.Simulation.NumEvents = *numEvents
	}
	if *numReplications > 0 {
		cfg.Simulation.NumReplications = *numReplications
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr {
		srv := obs.StartHTTPServer(cfg.Observability.MetricsPort, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics server started", obs.Int("port", cfg.Observability.MetricsPort))
	}

	queueSystem, err := cfg.Network.Build()
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}

	start := time.Now()
	runID := uuid.NewString()
	report := runReport{RunID: runID}

	if *replicateMode {
		opts := replicate.Options{
			NumReplications: cfg.Simulation.NumReplications,
			NumEvents:       cfg.Simulation.NumEvents,
			BaseSeed:        *seed,
			BaseSeedSet:     *seed != 0,
			Warmup:          cfg.Simulation.Warmup,
			WorkerCount:     cfg.Simulation.WorkerCount,
		}
		res, err := replicate.Run(queueSystem, opts)
		if err != nil {
			obs.ReplicationsFailed.Inc()
			return fmt.Errorf("replicate: %w", err)
		}
		obs.ReplicationsCompleted.Add(float64(opts.NumReplications))
		ci := stats.ConfidenceInterval(res.RawT, 1-cfg.Simulation.ConfidenceLevel)
		report = runReport{
			RunID:            runID,
			RawN:             res.RawN,
			RawT:             res.RawT,
			ConfidenceLower:  ci.Lower,
			ConfidenceUpper:  ci.Upper,
			ReplicationCount: len(res.RawT),
		}
		logger.Info("replication batch complete",
			obs.String("run_id", runID),
			obs.Int("replications", len(res.RawT)),
			obs.Float64("mean_t", ci.Mean),
		)
	} else {
		simOpts := cfg.ToSimOptions(*seed)
		result, err := queueSystem.Sim(simOpts)
		if err != nil {
			return fmt.Errorf("sim: %w", err)
		}
		obs.EventsProcessed.Add(float64(simOpts.NumEvents))
		for i, snap := range queueSystem.ServerSnapshots() {
			loss := stats.LossProbability(snap.NumRejected, snap.NumArrivals)
			policy := cfg.Network.Servers[i].Policy
			// Per-server mean number in system via Little's Law: this
			// server's throughput times its mean response time, since the
			// engine does not track a per-server area-under-N directly.
			serverThroughput := float64(snap.NumCompletions) / math.Max(1e-9, result.MeasurementDuration)
			serverMeanN := serverThroughput * snap.MeanResponseTime
			obs.ServerUtilization.WithLabelValues(fmt.Sprint(i), policy).Set(serverMeanN)
			obs.ServerLossProbability.WithLabelValues(fmt.Sprint(i), policy).Set(loss)
		}
		report = runReport{RunID: runID, MeanN: result.MeanN, MeanT: result.MeanT}
		logger.Info("simulation complete", obs.Float64("mean_n", result.MeanN), obs.Float64("mean_t", result.MeanT))
	}

	obs.RunDuration.Observe(time.Since(start).Seconds())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if *metricsAddr {
		logger.Info("holding open for metrics scrapes; interrupt to exit")
		<-ctx.Done()
	}
	return nil
}
