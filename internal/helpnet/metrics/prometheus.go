package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startTime = time.Now()

	// UptimeSeconds tracks the helpnet service uptime in seconds
	UptimeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "uptime_seconds",
		Help:      "Time passed since the coordinator started in seconds",
	})

	// Job lifecycle metrics
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "jobs_total",
		Help:      "Help request jobs by final status (completed/timed_out/failed)",
	}, []string{"status"})

	// Offer metrics
	OffersReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "offers_received_total",
		Help:      "Distinct offers recorded across all jobs",
	})

	// Payment metrics
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "payments_total",
		Help:      "Payment attempts by backend and outcome",
	}, []string{"backend", "status"})

	// Relay publish metrics
	RelayPublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "relay_publishes_total",
		Help:      "Per-relay publish acknowledgements (status=accepted/rejected)",
	}, []string{"status"})

	// Action execution metrics
	ActionsExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "actions_executed_total",
		Help:      "Desktop actions executed by type and outcome",
	}, []string{"action_type", "status"})

	// Upload metrics
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpnet",
		Subsystem: "coordinator",
		Name:      "uploads_total",
		Help:      "Screenshot uploads by outcome",
	}, []string{"status"})
)

// StartMetricsCollection starts collecting metrics
func StartMetricsCollection() {
	// Update uptime every 15 seconds
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			UptimeSeconds.Set(time.Since(startTime).Seconds())
		}
	}()
}
