// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	QueryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossquery_query_outcomes_total",
			Help: "Total number of template entries executed, by service and status",
		},
		[]string{"service", "status"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossquery_query_errors_total",
			Help: "Total number of failed template entries, by service and error code",
		},
		[]string{"service", "error_code"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossquery_query_duration_seconds",
			Help:    "Duration of a single backend query in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	TemplateRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossquery_template_runs_total",
			Help: "Total number of template runs, by template and status",
		},
		[]string{"template", "status"},
	)

	QueriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossquery_queries_in_flight",
			Help: "Number of backend queries currently executing",
		},
	)
)

// RecordOutcome updates the per-service counters for one finished entry.
func RecordOutcome(service string, success bool, errorCode string, took time.Duration) {
	status := StatusSuccess
	if !success {
		status = StatusFailure
		QueryErrors.WithLabelValues(service, errorCode).Inc()
	}
	QueryOutcomes.WithLabelValues(service, status).Inc()
	QueryDuration.WithLabelValues(service).Observe(took.Seconds())
}

// RecordRun counts a finished run; any failed entry marks it a failure.
func RecordRun(template string, hasFailures bool) {
	status := StatusSuccess
	if hasFailures {
		status = StatusFailure
	}
	TemplateRuns.WithLabelValues(template, status).Inc()
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format. A CLI run is too short-lived to be scraped directly.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
