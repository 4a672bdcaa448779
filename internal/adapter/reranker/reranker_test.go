package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPRerankerAlignment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Score by document length, returned in arbitrary order.
		resp := rerankResponse{}
		for i := len(req.Documents) - 1; i >= 0; i-- {
			resp.Results = append(resp.Results, rerankResult{
				Index:          i,
				RelevanceScore: float64(len(req.Documents[i])),
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := NewHTTPReranker(Options{BaseURL: srv.URL, Model: "test-reranker"})

	candidates := []string{"a", "ccc", "bb"}
	scores, err := r.Rerank(context.Background(), "query", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != len(candidates) {
		t.Fatalf("expected %d scores, got %d", len(candidates), len(scores))
	}
	for i, c := range candidates {
		if scores[i] != float64(len(c)) {
			t.Errorf("score %d misaligned: got %v, want %v", i, scores[i], float64(len(c)))
		}
	}
}

func TestHTTPRerankerEmptyCandidates(t *testing.T) {
	// No candidates means no HTTP call at all.
	r := NewHTTPReranker(Options{BaseURL: "http://unreachable.invalid", Model: "m"})

	scores, err := r.Rerank(context.Background(), "query", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Errorf("expected empty scores, got %v", scores)
	}
}

func TestHTTPRerankerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPReranker(Options{BaseURL: srv.URL, Model: "m"})
	if _, err := r.Rerank(context.Background(), "q", []string{"doc"}); err == nil {
		t.Fatal("expected error on server failure")
	} else if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestLexicalRerankerScoring(t *testing.T) {
	r := NewLexicalReranker()

	candidates := []string{
		"alpha bravo charlie",
		"delta echo foxtrot",
		"alpha unrelated words",
	}
	scores, err := r.Rerank(context.Background(), "alpha bravo", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if scores[0] != 1.0 {
		t.Errorf("full overlap should score 1.0, got %v", scores[0])
	}
	if scores[1] != 0.0 {
		t.Errorf("no overlap should score 0.0, got %v", scores[1])
	}
	if scores[2] != 0.5 {
		t.Errorf("half overlap should score 0.5, got %v", scores[2])
	}
}

func TestLexicalRerankerEmptyCandidates(t *testing.T) {
	r := NewLexicalReranker()
	scores, err := r.Rerank(context.Background(), "anything", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Errorf("expected empty scores, got %v", scores)
	}
}
