package domain

import (
	"fmt"
	"strings"
)

// Query limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	// DefaultTopK is the default number of semantic passages per path.
	DefaultTopK = 5
	// MaxTopK caps the number of semantic passages per path.
	MaxTopK = 50
)

// Hints is the typed output of the external entity-extraction collaborator.
// The zero value means "no hints"; the engine then degrades to pure
// text-based classification.
type Hints struct {
	Codes    []string
	Drug     string
	Device   string
	Service  string
	PlanTier string
}

// IsZero reports whether no hint field is populated.
func (h Hints) IsZero() bool {
	return len(h.Codes) == 0 && h.Drug == "" && h.Device == "" && h.Service == "" && h.PlanTier == ""
}

// Query is a single immutable question posed to the engine.
type Query struct {
	text  string
	hints Hints
	topK  int
}

// NewQuery validates and normalizes a query. topK 0 means "use the
// engine's configured default"; the retrieval layer resolves it.
func NewQuery(text string, hints Hints, topK int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("query text is required: %w", ErrMalformedQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, ErrMalformedQuery)
	}
	if topK < 0 {
		topK = 0
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	return Query{text: text, hints: hints, topK: topK}, nil
}

// Text returns the raw question text.
func (q *Query) Text() string { return q.text }

// Hints returns the structured extraction hints.
func (q *Query) Hints() Hints { return q.hints }

// TopK returns the requested number of semantic passages per route,
// 0 when the caller left it to the engine default.
func (q *Query) TopK() int { return q.topK }
