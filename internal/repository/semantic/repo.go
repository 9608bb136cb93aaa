// Package semantic implements passage retrieval against the vector store:
// embed the query text, then KNN-search the category's index.
package semantic

import (
	"context"
	"errors"
	"fmt"

	"github.com/benefitlens/coverquery/internal/db"
	"github.com/benefitlens/coverquery/internal/domain"
)

// Hash fields of an indexed passage.
const (
	fieldContent = "__content"
	fieldSource  = "source"
	fieldLoc     = "loc"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Repo searches the passage index. Safe for concurrent use.
type Repo struct {
	store       db.Searcher
	embedder    Embedder
	indexPrefix string
}

// NewRepo creates the repository. indexPrefix namespaces the per-category
// FT indexes (e.g. "coverquery:").
func NewRepo(store db.Searcher, embedder Embedder, indexPrefix string) *Repo {
	return &Repo{store: store, embedder: embedder, indexPrefix: indexPrefix}
}

// IndexName returns the FT index for a category.
func (r *Repo) IndexName(category domain.Category) string {
	return fmt.Sprintf("%s%s:idx", r.indexPrefix, category)
}

// Search embeds the text and returns the top-K most similar passages for
// the category. A missing index means no documents were ingested yet and
// yields empty results, not an error.
func (r *Repo) Search(ctx context.Context, category domain.Category, text string, topK int) ([]domain.Passage, error) {
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.IndexName(category),
		Vector:       vector,
		K:            topK,
		CategoryTag:  string(category),
		ReturnFields: []string{fieldContent, fieldSource, fieldLoc},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search: %w", err)
	}

	passages := make([]domain.Passage, 0, len(res.Entries))
	for _, e := range res.Entries {
		text := e.Fields[fieldContent]
		if text == "" {
			continue
		}
		loc := e.Fields[fieldLoc]
		if loc == "" {
			loc = e.Key
		}
		passages = append(passages, domain.NewPassage(text, e.Fields[fieldSource], loc, e.Score))
	}
	return passages, nil
}
