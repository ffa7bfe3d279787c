// Copyright 2025 James Ross
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReplicationsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queuesim_replications_completed_total",
		Help: "Total number of replications completed by the replicator",
	})
	ReplicationsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queuesim_replications_failed_total",
		Help: "Total number of replications aborted by a worker error",
	})
	EventsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queuesim_events_processed_total",
		Help: "Total number of completion events processed across all runs",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "queuesim_run_duration_seconds",
		Help:    "Wall-clock duration of a sim() or replicate() call",
		Buckets: prometheus.DefBuckets,
	})
	ServerUtilization = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "queuesim_server_utilization",
		Help: "Mean number in system at the server for the most recent run",
	}, []string{"server", "policy"})
	ServerLossProbability = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "queuesim_server_loss_probability",
		Help: "num_rejected / max(1, num_arrivals) for the most recent run",
	}, []string{"server", "policy"})
)

func init() {
	prometheus.MustRegister(
		ReplicationsCompleted,
		ReplicationsFailed,
		EventsProcessed,
		RunDuration,
		ServerUtilization,
		ServerLossProbability,
	)
}
