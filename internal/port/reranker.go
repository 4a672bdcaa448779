package port

import "context"

// Reranker scores (query, candidate) pairs with a cross-encoder model.
type Reranker interface {
	// Rerank returns one relevance score per candidate, aligned by
	// index to the input. Higher is more relevant; scores are not
	// guaranteed to be bounded to [0,1]. Empty candidates yield an
	// empty result, not an error.
	Rerank(ctx context.Context, query string, candidates []string) ([]float64, error)

	// ModelName returns the name of the reranking model.
	ModelName() string
}
