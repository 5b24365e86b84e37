package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_fetch_tier_total",
		Help: "Extraction attempts by fetch tier and outcome.",
	}, []string{"tier", "outcome"})

	similarDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_similar_dispatched_total",
		Help: "Similar-article URLs dispatched for extraction after domain deduplication.",
	})

	analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_analyze_duration_seconds",
		Help:    "End-to-end duration of a full article analysis.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
