package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_analyses_total",
		Help: "Total number of risk analyses, labeled by resulting risk level.",
	}, []string{"level"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "risk_analysis_duration_seconds",
		Help:    "Latency of a full risk analysis.",
		Buckets: prometheus.DefBuckets,
	})

	factorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_factor_failures_total",
		Help: "Risk factor evaluations that failed open, labeled by factor.",
	}, []string{"factor"})

	alertsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "risk_fraud_alerts_created_total",
		Help: "Fraud alerts persisted for high and critical outcomes.",
	})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "risk_analysis_fallbacks_total",
		Help: "Analyses that returned the neutral medium fallback.",
	})
)

// ObserveAnalysis records a completed analysis and its latency.
func ObserveAnalysis(level string, elapsed time.Duration) {
	analysesTotal.WithLabelValues(level).Inc()
	analysisDuration.Observe(elapsed.Seconds())
}

// FactorFailure records a factor evaluation that failed open.
func FactorFailure(factor string) {
	factorFailuresTotal.WithLabelValues(factor).Inc()
}

// AlertCreated records a persisted fraud alert.
func AlertCreated() {
	alertsCreatedTotal.Inc()
}

// Fallback records an analysis that degraded to the neutral fallback.
func Fallback() {
	fallbacksTotal.Inc()
}
