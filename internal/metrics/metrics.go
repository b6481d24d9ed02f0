package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsCollected tracks total snapshots collected per card
	SnapshotsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpuwatch_snapshots_collected_total",
			Help: "Total number of health snapshots collected",
		},
		[]string{"card"},
	)

	// CollectErrorsTotal tracks telemetry collection failures per card
	CollectErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpuwatch_collect_errors_total",
			Help: "Total number of failed telemetry collections",
		},
		[]string{"card"},
	)

	// CollectLatency tracks telemetry collection latency
	CollectLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dpuwatch_collect_latency_seconds",
			Help:    "Telemetry collection latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"card"},
	)

	// AnomaliesDetected tracks anomalies per card and kind
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpuwatch_anomalies_detected_total",
			Help: "Total number of anomalies flagged by the evaluator",
		},
		[]string{"card", "anomaly"},
	)

	// CardHealthStatus tracks the current health of each card
	// 0 = normal, 1 = warning, 2 = critical
	CardHealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dpuwatch_card_health_status",
			Help: "Current health status per card (0=normal, 1=warning, 2=critical)",
		},
		[]string{"card"},
	)

	// RecoveryAttemptsTotal tracks whole-recipe recovery runs per card and outcome
	RecoveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpuwatch_recovery_attempts_total",
			Help: "Total number of recovery recipe runs",
		},
		[]string{"card", "failure_type", "outcome"},
	)

	// RecoveryStepsTotal tracks individual step executions per outcome
	RecoveryStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpuwatch_recovery_steps_total",
			Help: "Total number of recovery steps executed",
		},
		[]string{"card", "outcome"},
	)

	// RecoveryQueueDepth tracks the number of pending recoveries
	RecoveryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpuwatch_recovery_queue_depth",
			Help: "Number of pending recoveries in the queue",
		},
	)

	// DBConnectionPoolUsage tracks database connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpuwatch_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)

// StatusValue maps a health status string to its gauge value.
func StatusValue(status string) float64 {
	switch status {
	case "warning":
		return 1
	case "critical":
		return 2
	default:
		return 0
	}
}
