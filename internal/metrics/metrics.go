// Package metrics exposes Prometheus collectors for the recommendation
// pipeline and its background image rendering.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts finished recommendations by outcome:
	// the source of the returned recipe, or "failed".
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yoribogo",
			Name:      "recommendations_total",
			Help:      "Recommendations by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "yoribogo",
			Name:      "recommendation_duration_seconds",
			Help:      "End-to-end recommendation latency",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	// RecommendationsShared counts callers that joined an in-flight
	// recommendation for the same dish instead of running their own.
	RecommendationsShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "yoribogo",
			Name:      "recommendations_shared_total",
			Help:      "Recommendations served from a concurrent identical request",
		},
	)

	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yoribogo",
			Name:      "ai_requests_total",
			Help:      "Text model requests by status",
		},
		[]string{"status"},
	)

	ImageJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yoribogo",
			Name:      "image_jobs_total",
			Help:      "Image render jobs by status",
		},
		[]string{"status"},
	)

	ImageQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "yoribogo",
			Name:      "image_queue_depth",
			Help:      "Image render jobs enqueued or running",
		},
	)
)
