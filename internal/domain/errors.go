package domain

import "errors"

var (
	// ErrMalformedQuery signals an empty or oversized input query.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrNoCitation signals a merged item that resolves to zero citations.
	ErrNoCitation = errors.New("merged item has no citation")
	// ErrStoreUnavailable signals that a backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnknownCategory signals a domain category the engine does not serve.
	ErrUnknownCategory = errors.New("unknown domain category")
)
