// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MeshAnalyses counts geometry analyses by outcome:
	// ok, unsupported_format, truncated, empty_mesh, timeout.
	MeshAnalyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printbay_mesh_analyses_total",
		Help: "Mesh geometry analyses by outcome.",
	}, []string{"outcome"})

	// MeshAnalysisSeconds tracks how long a single analysis takes.
	MeshAnalysisSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "printbay_mesh_analysis_seconds",
		Help:    "Duration of mesh geometry analyses.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// QuotesSubmitted counts accepted quote submissions.
	QuotesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printbay_quotes_submitted_total",
		Help: "Quotes successfully submitted by makers.",
	})

	// AcceptConflicts counts accepts that lost the race for a job. Expected
	// under normal multi-maker operation, so a counter rather than an error log.
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printbay_quote_accept_conflicts_total",
		Help: "Quote accepts rejected because another quote already won.",
	})

	// EstimatesServed counts cost estimates computed via the API.
	EstimatesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printbay_cost_estimates_total",
		Help: "Cost estimates served.",
	})
)

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
