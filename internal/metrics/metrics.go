// Package metrics provides the Prometheus collectors for validation and image build
// activity and the handler that exports them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	registry = prometheus.NewRegistry()

	validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqval_validations_total",
			Help: "Total requirement validations",
		},
		[]string{"result", "kind"},
	)
	validationIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqval_validation_issues_total",
			Help: "Total validation errors reported, by type",
		},
		[]string{"type"},
	)
	validationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reqval_validation_duration_seconds",
			Help:    "Duration of requirement validation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)
	imageBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqval_image_builds_total",
			Help: "Total image build attempts",
		},
		[]string{"status"},
	)
)

func init() {
	registry.MustRegister(
		validations,
		validationIssues,
		validationDuration,
		imageBuilds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// ObserveValidation records one validation outcome.
func ObserveValidation(valid, functional bool, issueTypes []string, took time.Duration) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	kind := "non_functional"
	if functional {
		kind = "functional"
	}
	validations.WithLabelValues(result, kind).Inc()
	for _, t := range issueTypes {
		validationIssues.WithLabelValues(t).Inc()
	}
	validationDuration.Observe(took.Seconds())
}

// IncImageBuild counts an image build attempt by status.
func IncImageBuild(status string) {
	imageBuilds.WithLabelValues(status).Inc()
}

// Registry exposes the collector registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
