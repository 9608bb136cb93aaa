// Package health aggregates component health checks for the readiness
// endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates one retrieval path (or the embedder) is down;
	// the engine still answers from the surviving path.
	Degraded Status = "degraded"
	// Unhealthy indicates both retrieval paths are down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names as they appear in the report.
const (
	ComponentStructured = "structured_store"
	ComponentSemantic   = "semantic_store"
	ComponentEmbedding  = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	structured StructuredPinger
	semantic   SemanticPinger
	embedding  EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(structured StructuredPinger, semantic SemanticPinger, embedding EmbeddingChecker) *Service {
	return &Service{structured: structured, semantic: semantic, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	structuredOK := s.structured.PingContext(ctx) == nil
	if structuredOK {
		checks[ComponentStructured] = CheckOK
	} else {
		checks[ComponentStructured] = CheckError
	}

	semanticOK := s.semantic.Ping(ctx) == nil
	if semanticOK {
		checks[ComponentSemantic] = CheckOK
	} else {
		checks[ComponentSemantic] = CheckError
	}

	embeddingOK := true
	if s.embedding != nil {
		embeddingOK = s.embedding.HealthCheck(ctx) == nil
		if embeddingOK {
			checks[ComponentEmbedding] = CheckOK
		} else {
			checks[ComponentEmbedding] = CheckError
		}
	}

	// The semantic path needs both the store and the embedder; losing it
	// degrades service, losing both paths is an outage.
	semanticPathOK := semanticOK && embeddingOK

	status := Healthy
	switch {
	case !structuredOK && !semanticPathOK:
		status = Unhealthy
	case !structuredOK || !semanticPathOK:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
