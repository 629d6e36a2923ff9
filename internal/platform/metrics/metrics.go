// Package metrics holds the Prometheus metrics for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SessionsCreated    prometheus.Counter
	ExtractionAttempts prometheus.Counter
	ExtractionFailures prometheus.Counter
	EditorOperations   *prometheus.CounterVec
	DocumentsAssembled prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyogisho_sessions_created_total",
			Help: "Total number of wizard sessions created",
		}),
		ExtractionAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyogisho_extractions_total",
			Help: "Total number of extraction calls sent to the AI gateway",
		}),
		ExtractionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyogisho_extraction_failures_total",
			Help: "Total number of failed extraction calls",
		}),
		EditorOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyogisho_editor_operations_total",
			Help: "Total number of applied editor operations by kind",
		}, []string{"op"}),
		DocumentsAssembled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyogisho_documents_assembled_total",
			Help: "Total number of agreement documents assembled",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyogisho_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern, and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}
