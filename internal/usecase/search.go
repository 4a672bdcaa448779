package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"semkb/internal/domain"
	"semkb/internal/port"
)

// Searcher answers free-text queries against a collection with
// two-stage retrieval: a wide vector search for recall, then a
// reranking pass for precision.
type Searcher struct {
	store          port.CollectionStore
	models         *Models
	candidateLimit int
	logger         *slog.Logger
}

func NewSearcher(store port.CollectionStore, models *Models, candidateLimit int, logger *slog.Logger) *Searcher {
	if candidateLimit < 1 {
		candidateLimit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		store:          store,
		models:         models,
		candidateLimit: candidateLimit,
		logger:         logger,
	}
}

// Search retrieves the topK most relevant chunks for a query. Results
// are ordered by reranker score descending; ties preserve vector
// search order. An empty collection yields an empty slice.
func (s *Searcher) Search(ctx context.Context, collection, query string, topK int) ([]domain.ResultItem, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidTopK, topK)
	}
	if _, err := s.store.RecordCount(collection); err != nil {
		return nil, err
	}

	queryVector, err := s.models.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := s.candidateLimit
	if limit < topK {
		limit = topK
	}
	candidates, err := s.store.VectorSearch(collection, queryVector, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.ResultItem{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Content
	}
	scores, err := s.models.Reranker.Rerank(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank: got %d scores for %d candidates", len(scores), len(candidates))
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > topK {
		order = order[:topK]
	}

	results := make([]domain.ResultItem, len(order))
	for i, idx := range order {
		c := candidates[idx].Chunk
		results[i] = domain.ResultItem{
			Content:        c.Content,
			RelevanceScore: scores[idx],
			SourceDocument: c.SourceDocument,
			ChunkOffset:    c.ChunkOffset,
		}
	}

	s.logger.Debug("query answered",
		slog.String("collection", collection),
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(results)))

	return results, nil
}
