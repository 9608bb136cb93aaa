package health

import "context"

// StructuredPinger checks relational store availability.
type StructuredPinger interface {
	PingContext(ctx context.Context) error
}

// SemanticPinger checks vector store availability.
type SemanticPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
