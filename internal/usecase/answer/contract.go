package answer

import (
	"context"

	"github.com/benefitlens/coverquery/internal/domain"
	"github.com/benefitlens/coverquery/internal/usecase/retrieve"
)

// RouteClassifier maps a query onto one or more category routes.
type RouteClassifier interface {
	Routes(q domain.Query) []domain.Route
}

// RouteExecutor runs both retrieval paths for one route.
type RouteExecutor interface {
	Execute(ctx context.Context, route domain.Route, topK int) retrieve.Result
}

// MetricsRecorder records per-answer engine metrics.
type MetricsRecorder interface {
	ObserveConfidence(v float64)
	AddConflicts(n int)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveConfidence(float64) {}
func (NopMetrics) AddConflicts(int)          {}
