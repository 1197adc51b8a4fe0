package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
)

var (
	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_verdicts_total",
			Help: "Total number of verdicts computed, by outcome",
		},
		[]string{"verdict"},
	)

	RuleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_rule_evaluations_total",
			Help: "Total number of rule evaluations, by rule and outcome",
		},
		[]string{"rule_id", "met"},
	)

	ExplainerFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tender_explainer_fallbacks_total",
			Help: "Total number of verdicts persisted with the fallback explanation",
		},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_extractions_total",
			Help: "Total number of tender document extractions, by status",
		},
		[]string{"status"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tender_extraction_duration_seconds",
			Help:    "Duration of tender document extraction in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_http_requests_total",
			Help: "Total number of HTTP requests, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tender_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveMatch records the verdict and per-rule outcomes of a match.
func ObserveMatch(res *eligibility.MatchResult) {
	if res == nil {
		return
	}
	VerdictsTotal.WithLabelValues(string(res.OverallVerdict)).Inc()
	for _, r := range res.RuleResults {
		RuleEvaluationsTotal.WithLabelValues(r.RuleID, strconv.FormatBool(r.Met)).Inc()
	}
}
