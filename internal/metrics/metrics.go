package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal tracks health probes per chain and outcome
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcwatch_probes_total",
			Help: "Total number of RPC health probes",
		},
		[]string{"chain", "status"},
	)

	// ProbeLatency tracks probe round-trip latency
	ProbeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpcwatch_probe_latency_seconds",
			Help:    "RPC health probe latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	// FailoversTotal tracks current-endpoint changes per chain
	FailoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcwatch_failovers_total",
			Help: "Total number of endpoint failovers",
		},
		[]string{"chain", "reason"},
	)

	// ReportedErrorsTotal tracks errors reported by RPC consumers
	ReportedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcwatch_reported_errors_total",
			Help: "Total number of errors reported against the current endpoint",
		},
		[]string{"chain", "kind"},
	)

	// CurrentIndex tracks the pool index of the current endpoint
	CurrentIndex = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rpcwatch_current_index",
			Help: "Pool index of the current endpoint",
		},
		[]string{"chain"},
	)

	// PoolSize tracks the number of endpoint candidates per chain
	PoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rpcwatch_pool_size",
			Help: "Number of endpoint candidates in the pool",
		},
		[]string{"chain"},
	)

	// Exhausted is 1 while every endpoint of the chain is failing
	Exhausted = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rpcwatch_pool_exhausted",
			Help: "Whether every endpoint of the chain is failing",
		},
		[]string{"chain"},
	)

	// DroppedEventsTotal tracks failover events dropped because the recorder
	// queue was full
	DroppedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcwatch_dropped_events_total",
			Help: "Total number of failover events dropped before reaching recorders",
		},
		[]string{"chain", "event"},
	)
)
