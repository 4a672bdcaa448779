package cli

import (
	"fmt"
	"path/filepath"

	"semkb/config"
	"semkb/internal/adapter/chunker"
	"semkb/internal/adapter/embedding"
	"semkb/internal/adapter/fs"
	"semkb/internal/adapter/manifest"
	"semkb/internal/adapter/reranker"
	"semkb/internal/adapter/store"
	"semkb/internal/port"
	"semkb/internal/usecase"
)

// openStore opens the collection store under the configured data
// directory.
func openStore(cfg *config.Config) (*store.BoltCollectionStore, error) {
	path := filepath.Join(cfg.Store.DataDir, "kb.db")
	st, err := store.NewBoltCollectionStore(path, cfg.Embedding.Dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	return st, nil
}

// buildModels wires the configured embedding and reranking providers.
func buildModels(cfg *config.Config) (*usecase.Models, error) {
	var emb port.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		emb = embedding.NewOpenAIEmbedder(embedding.Options{
			BaseURL:     cfg.Embedding.BaseURL,
			APIKeyEnv:   cfg.Embedding.APIKeyEnv,
			Model:       cfg.Embedding.Model,
			QueryPrefix: cfg.Embedding.QueryPrefix,
			Dimension:   cfg.Embedding.Dimension,
			BatchSize:   cfg.Embedding.BatchSize,
			Timeout:     cfg.EmbeddingTimeout(),
		})
	case "mock":
		emb = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	var rr port.Reranker
	switch cfg.Reranker.Provider {
	case "http":
		rr = reranker.NewHTTPReranker(reranker.Options{
			BaseURL:   cfg.Reranker.BaseURL,
			APIKeyEnv: cfg.Reranker.APIKeyEnv,
			Model:     cfg.Reranker.Model,
			Timeout:   cfg.RerankerTimeout(),
		})
	case "lexical":
		rr = reranker.NewLexicalReranker()
	default:
		return nil, fmt.Errorf("unknown reranker provider %q", cfg.Reranker.Provider)
	}

	return &usecase.Models{Embedder: emb, Reranker: rr}, nil
}

func newIngestor(cfg *config.Config, st port.CollectionStore, models *usecase.Models) *usecase.Ingestor {
	return usecase.NewIngestor(
		st,
		chunker.NewSemanticChunker(cfg.Chunking.MaxChunkTokens),
		models,
		fs.NewWalker(cfg.Ingest.Patterns),
		manifest.NewFetcher(cfg.FetchTimeout(), cfg.Ingest.MaxConcurrent),
		cfg.Ingest.Workers,
		nil,
	)
}

func newSearcher(cfg *config.Config, st port.CollectionStore, models *usecase.Models) *usecase.Searcher {
	return usecase.NewSearcher(st, models, cfg.Retrieval.CandidateLimit, nil)
}
