package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"semkb/internal/domain"
)

// HTTPReranker scores (query, candidate) pairs through a Cohere-style
// /rerank endpoint: request carries the query and candidate documents,
// the response carries {index, relevance_score} pairs.
type HTTPReranker struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Options configures an HTTPReranker.
type Options struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewHTTPReranker creates a reranker. The API key is read from the
// configured environment variable; empty is allowed for local
// endpoints.
func NewHTTPReranker(opts Options) *HTTPReranker {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &HTTPReranker{
		apiKey:  os.Getenv(opts.APIKeyEnv),
		model:   opts.Model,
		baseURL: opts.BaseURL,
		client:  &http.Client{Timeout: opts.Timeout},
	}
}

// Open verifies the model is reachable with a probe pair. Failure is
// surfaced as domain.ErrModelUnavailable.
func (r *HTTPReranker) Open(ctx context.Context) error {
	if _, err := r.Rerank(ctx, "probe", []string{"probe"}); err != nil {
		return fmt.Errorf("%w: reranking model %s: %v", domain.ErrModelUnavailable, r.model, err)
	}
	return nil
}

// Close releases idle connections.
func (r *HTTPReranker) Close() {
	r.client.CloseIdleConnections()
}

// Rerank returns relevance scores aligned by index to candidates.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	reqBody := rerankRequest{
		Query:     query,
		Documents: candidates,
		Model:     r.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var rr rerankResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	scores := make([]float64, len(candidates))
	for _, res := range rr.Results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("rerank index %d out of range", res.Index)
		}
		scores[res.Index] = res.RelevanceScore
	}

	return scores, nil
}

// ModelName returns the reranking model identifier.
func (r *HTTPReranker) ModelName() string {
	return r.model
}
