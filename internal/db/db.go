// Package db defines the vector store facade the semantic retrieval path
// depends on. The concrete implementation lives in db/redis.
package db

import (
	"context"
	"time"
)

// Store is the vector database facade.
type Store interface {
	Pinger
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KNNQuery describes one vector similarity search against an FT index.
type KNNQuery struct {
	IndexName string
	Vector    []float32
	K         int
	// CategoryTag pre-filters on the indexed category tag field when set.
	CategoryTag string
	// ReturnFields limits which hash fields come back with each hit.
	ReturnFields []string
}

// SearchEntry is one scored hit. Score is cosine similarity in [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is the full FT.SEARCH response.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// Searcher runs similarity searches over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
