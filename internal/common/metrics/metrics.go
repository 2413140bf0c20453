// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_sessions_started_total",
			Help: "Total number of triage conversations started",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_sessions_active",
			Help: "Number of conversations held in the session registry",
		},
	)

	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_messages_processed_total",
			Help: "Total number of user messages processed by outcome",
		},
		[]string{"outcome"},
	)

	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_analyses_completed_total",
			Help: "Total number of completed analyses by urgency level",
		},
		[]string{"urgency_level"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "triage_analysis_duration_seconds",
			Help: "Duration of the analysis pipeline in seconds",
		},
		[]string{"source"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_store_operations_total",
			Help: "Total number of conversation store operations",
		},
		[]string{"driver", "operation", "status"},
	)

	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_alerts_sent_total",
			Help: "Total number of high-urgency alerts by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// Outcome labels for MessagesProcessed.
const (
	OutcomeQuestion = "question"
	OutcomeAnalysis = "analysis"
	OutcomeAborted  = "aborted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// ObserveStore records a store operation result.
func ObserveStore(driver, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(driver, operation, status).Inc()
}
