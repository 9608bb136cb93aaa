package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coverquery",
			Name:      "retrieval_path_duration_seconds",
			Help:      "Per-path retrieval duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"path", "outcome"},
	)

	answerConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coverquery",
			Name:      "answer_confidence",
			Help:      "Confidence of assembled answer cards",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99},
		},
	)

	answerConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coverquery",
			Name:      "answer_conflicts_total",
			Help:      "Total cross-path conflicts surfaced on answer cards",
		},
	)

	embeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverquery",
			Name:      "embedding_requests_total",
			Help:      "Total embedding API requests",
		},
		[]string{"model", "status"},
	)

	embeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coverquery",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(
		retrievalDuration,
		answerConfidence,
		answerConflictsTotal,
		embeddingRequestsTotal,
		embeddingRequestDuration,
	)
}

// Engine adapts the Prometheus collectors to the usecase-side recorder
// interfaces.
type Engine struct{}

// ObserveRetrieval records one retrieval path run.
func (Engine) ObserveRetrieval(path, outcome string, elapsed time.Duration) {
	retrievalDuration.WithLabelValues(path, outcome).Observe(elapsed.Seconds())
}

// ObserveConfidence records one assembled card's confidence.
func (Engine) ObserveConfidence(v float64) {
	answerConfidence.Observe(v)
}

// AddConflicts counts surfaced conflicts.
func (Engine) AddConflicts(n int) {
	if n > 0 {
		answerConflictsTotal.Add(float64(n))
	}
}

// ObserveEmbedding records one embedding API call.
func ObserveEmbedding(model, status string, elapsed time.Duration) {
	embeddingRequestsTotal.WithLabelValues(model, status).Inc()
	if status == "success" {
		embeddingRequestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	}
}
