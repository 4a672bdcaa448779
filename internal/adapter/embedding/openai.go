package embedding

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

// OpenAIEmbedder embeds text through an OpenAI-compatible /embeddings
// endpoint (OpenAI, Ollama, TEI and friends speak the same shape).
type OpenAIEmbedder struct {
	apiKey      string
	model       string
	baseURL     string
	queryPrefix string
	dimension   int
	batchSize   int
	client      *http.Client
}

// Options configures an OpenAIEmbedder.
type Options struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	QueryPrefix string
	Dimension   int
	BatchSize   int
	Timeout     time.Duration
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIEmbedder creates an embedder. The API key is read from the
// configured environment variable; an empty variable is allowed for
// local endpoints that skip auth.
func NewOpenAIEmbedder(opts Options) *OpenAIEmbedder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &OpenAIEmbedder{
		apiKey:      os.Getenv(opts.APIKeyEnv),
		model:       opts.Model,
		baseURL:     opts.BaseURL,
		queryPrefix: opts.QueryPrefix,
		dimension:   opts.Dimension,
		batchSize:   opts.BatchSize,
		client:      &http.Client{Timeout: opts.Timeout},
	}
}

// Open verifies the model is reachable by embedding a probe string.
// Failure is surfaced as domain.ErrModelUnavailable and should be
// treated as fatal by the caller.
func (e *OpenAIEmbedder) Open(ctx context.Context) error {
	if _, err := e.Embed(ctx, []string{"probe"}); err != nil {
		return fmt.Errorf("%w: embedding model %s: %v", domain.ErrModelUnavailable, e.model, err)
	}
	return nil
}

// Close releases idle connections.
func (e *OpenAIEmbedder) Close() {
	e.client.CloseIdleConnections()
}

// Embed generates one vector per input text, in input order. Large
// batches are split into sub-batches to bound request size.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// EmbedQuery embeds query text with the asymmetric query prefix
// applied.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{e.queryPrefix + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
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

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, e.dimension, len(data.Embedding))
		}
		vectors[data.Index] = data.Embedding
	}

	return vectors, nil
}

// Dimension returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the embedding model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
