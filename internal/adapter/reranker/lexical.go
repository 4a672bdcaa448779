package reranker

import (
	"context"

	"semkb/internal/adapter/analyzer"
)

// LexicalReranker scores candidates by query term overlap. It stands
// in for the cross-encoder in tests and offline operation.
type LexicalReranker struct {
	tokenizer *analyzer.Tokenizer
}

// NewLexicalReranker creates a term-overlap reranker.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{tokenizer: analyzer.NewTokenizer()}
}

// Rerank returns one score per candidate, aligned by index: the
// fraction of query terms present in the candidate.
func (r *LexicalReranker) Rerank(_ context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	queryTerms := make(map[string]struct{})
	for _, term := range r.tokenizer.Terms(query) {
		queryTerms[term] = struct{}{}
	}

	scores := make([]float64, len(candidates))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	for i, candidate := range candidates {
		seen := make(map[string]struct{})
		for _, term := range r.tokenizer.Terms(candidate) {
			seen[term] = struct{}{}
		}
		matches := 0
		for term := range queryTerms {
			if _, ok := seen[term]; ok {
				matches++
			}
		}
		scores[i] = float64(matches) / float64(len(queryTerms))
	}

	return scores, nil
}

// ModelName identifies the fallback scorer.
func (r *LexicalReranker) ModelName() string {
	return "lexical-overlap"
}
