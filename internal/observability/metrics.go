package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrainingRunsTotal counts training runs by outcome.
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specmatch_training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"outcome"},
	)

	// TrainingDuration tracks how long a full roster training takes.
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "specmatch_training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// ModelCompositeScore is the composite score of each family in the active epoch.
	ModelCompositeScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "specmatch_model_composite_score",
			Help: "Composite score per model family in the active epoch",
		},
		[]string{"model"},
	)

	// PredictionsTotal counts price predictions by outcome.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specmatch_predictions_total",
			Help: "Total number of price predictions",
		},
		[]string{"outcome"},
	)

	// SearchDuration tracks specification search latency.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "specmatch_search_duration_seconds",
			Help:    "Duration of specification searches in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// CatalogCacheTotal counts catalog cache lookups by result.
	CatalogCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specmatch_catalog_cache_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal counts HTTP requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "specmatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordTraining records a finished training run
func RecordTraining(outcome string, d time.Duration) {
	TrainingRunsTotal.WithLabelValues(outcome).Inc()
	TrainingDuration.Observe(d.Seconds())
}

// RecordCompositeScores replaces the per-family composite gauges
func RecordCompositeScores(scores map[string]float64) {
	ModelCompositeScore.Reset()
	for model, s := range scores {
		ModelCompositeScore.WithLabelValues(model).Set(s)
	}
}

// RecordPrediction records a prediction outcome
func RecordPrediction(outcome string) {
	PredictionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch records the latency of one search
func RecordSearch(d time.Duration) {
	SearchDuration.Observe(d.Seconds())
}

// RecordCatalogCache records a catalog cache hit or miss
func RecordCatalogCache(hit bool) {
	if hit {
		CatalogCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	CatalogCacheTotal.WithLabelValues("miss").Inc()
}
