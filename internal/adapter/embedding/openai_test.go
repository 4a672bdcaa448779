package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, dimension int, requests *[][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if requests != nil {
			*requests = append(*requests, req.Input)
		}
		resp := embeddingResponse{}
		for i := range req.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(len(req.Input[i]))
			resp.Data = append(resp.Data, embeddingData{Embedding: vec, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedShapeInvariant(t *testing.T) {
	srv := newTestServer(t, 8, nil)
	defer srv.Close()

	e := NewOpenAIEmbedder(Options{BaseURL: srv.URL, Model: "test-model", Dimension: 8})

	texts := []string{"one", "two", "three"}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 8 {
			t.Errorf("vector %d has dimension %d", i, len(v))
		}
	}
}

func TestEmbedSubBatching(t *testing.T) {
	var requests [][]string
	srv := newTestServer(t, 4, &requests)
	defer srv.Close()

	e := NewOpenAIEmbedder(Options{BaseURL: srv.URL, Model: "test-model", Dimension: 4, BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vectors))
	}
	if len(requests) != 3 {
		t.Fatalf("expected 3 sub-batches, got %d", len(requests))
	}
	// Order must be preserved across sub-batches.
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order", i)
		}
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	srv := newTestServer(t, 4, nil)
	defer srv.Close()

	e := NewOpenAIEmbedder(Options{BaseURL: srv.URL, Model: "test-model", Dimension: 16})

	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedQueryPrefix(t *testing.T) {
	var requests [][]string
	srv := newTestServer(t, 4, &requests)
	defer srv.Close()

	e := NewOpenAIEmbedder(Options{BaseURL: srv.URL, Model: "test-model", Dimension: 4, QueryPrefix: "query: "})

	if _, err := e.EmbedQuery(context.Background(), "find me"); err != nil {
		t.Fatal(err)
	}
	if len(requests) != 1 || len(requests[0]) != 1 {
		t.Fatalf("expected a single query request, got %v", requests)
	}
	if !strings.HasPrefix(requests[0][0], "query: ") {
		t.Errorf("query prefix not applied: %q", requests[0][0])
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder(Options{BaseURL: "http://unreachable.invalid", Model: "m", Dimension: 4})
	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 0 {
		t.Errorf("expected no vectors, got %d", len(vectors))
	}
}
