package embedding

import (
	"context"
	"strings"
)

// MockEmbedder produces deterministic vectors derived from the input
// text. Lexically similar texts land near each other, which is enough
// for store and retrieval tests without a model endpoint.
type MockEmbedder struct {
	dimension   int
	queryPrefix string
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.encode(text)
	}
	return vectors, nil
}

func (e *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.encode(e.queryPrefix + text), nil
}

// encode hashes character trigrams into vector positions so shared
// substrings produce nearby vectors.
func (e *MockEmbedder) encode(text string) []float32 {
	v := make([]float32, e.dimension)
	runes := []rune(strings.ToLower(text))
	for i := 0; i+2 < len(runes); i++ {
		h := uint32(17)
		for _, r := range runes[i : i+3] {
			h = h*31 + uint32(r)
		}
		v[int(h)%e.dimension]++
	}
	return v
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
