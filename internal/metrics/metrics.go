// Package metrics provides Prometheus metrics for the dashboard backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal tracks pipeline runs by outcome
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helplink",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of filter-and-aggregate runs by outcome",
		},
		[]string{"outcome"},
	)

	// PipelineDuration tracks how long a pipeline run takes
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "helplink",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of filter-and-aggregate runs in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// SnapshotLoadsTotal tracks snapshot reads from the data source
	SnapshotLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helplink",
			Subsystem: "snapshot",
			Name:      "loads_total",
			Help:      "Total number of snapshot loads by source and status",
		},
		[]string{"source", "status"},
	)

	// SnapshotUnavailableTables tracks tables left empty on the last load
	SnapshotUnavailableTables = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "helplink",
			Subsystem: "snapshot",
			Name:      "unavailable_tables",
			Help:      "Number of tables that could not be read on the last snapshot load",
		},
	)

	// CacheRequestsTotal tracks snapshot cache lookups
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helplink",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	// ExportsTotal tracks generated export files
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helplink",
			Subsystem: "export",
			Name:      "files_total",
			Help:      "Total number of export files by format and status",
		},
		[]string{"format", "status"},
	)

	// HTTPRequestsTotal tracks inbound API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helplink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)
)
