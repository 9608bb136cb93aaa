package retrieve

import (
	"context"
	"time"

	"github.com/benefitlens/coverquery/internal/domain"
)

// StructuredClient queries the relational plan store by exact keys.
type StructuredClient interface {
	Query(ctx context.Context, category domain.Category, params domain.Params) ([]domain.Record, error)
}

// SemanticClient searches the vector store for passages similar to the
// query text.
type SemanticClient interface {
	Search(ctx context.Context, category domain.Category, text string, topK int) ([]domain.Passage, error)
}

// MetricsRecorder records per-path retrieval outcomes.
type MetricsRecorder interface {
	ObserveRetrieval(path, outcome string, elapsed time.Duration)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveRetrieval(string, string, time.Duration) {}
