package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"semkb/internal/domain"
)

const testDim = 4

func newTestStore(t *testing.T) *BoltCollectionStore {
	t.Helper()
	s, err := NewBoltCollectionStore(filepath.Join(t.TempDir(), "kb.db"), testDim)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(id string, vector []float32) domain.Chunk {
	return domain.Chunk{
		ID:             id,
		Content:        "content-" + id,
		Vector:         vector,
		SourceDocument: "/docs/" + id + ".md",
		TokenCount:     3,
		CreatedAt:      time.Now(),
	}
}

func TestCreateCollectionValidation(t *testing.T) {
	s := newTestStore(t)

	valid := []string{"docs", "My-Index", "a", "x_1"}
	for _, name := range valid {
		if err := s.CreateCollection(name); err != nil {
			t.Errorf("expected %q to be valid: %v", name, err)
		}
	}

	invalid := []string{"", "1docs", "-lead", "_lead", "has space", "dot.name"}
	for _, name := range invalid {
		if err := s.CreateCollection(name); !errors.Is(err, domain.ErrInvalidCollectionName) {
			t.Errorf("expected ErrInvalidCollectionName for %q, got %v", name, err)
		}
	}
}

func TestCreateCollectionConflict(t *testing.T) {
	s := newTestStore(t)

	if err := s.CreateCollection("x"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChunks("x", []domain.Chunk{testChunk("a", []float32{1, 0, 0, 0})}); err != nil {
		t.Fatal(err)
	}

	if err := s.CreateCollection("x"); !errors.Is(err, domain.ErrCollectionExists) {
		t.Fatalf("expected ErrCollectionExists, got %v", err)
	}

	// The first collection must be intact.
	count, err := s.RecordCount("x")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected record count 1 after failed re-create, got %d", count)
	}
}

func TestListCollections(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.CreateCollection(name); err != nil {
			t.Fatal(err)
		}
	}

	names, err := s.ListCollections()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 collections, got %d", len(names))
	}
	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	for _, want := range []string{"zeta", "alpha", "mid"} {
		if seen[want] != 1 {
			t.Errorf("collection %q present %d times", want, seen[want])
		}
	}
}

func TestDeleteCollection(t *testing.T) {
	s := newTestStore(t)

	if err := s.DeleteCollection("ghost"); !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}

	if err := s.CreateCollection("gone"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCollection("gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RecordCount("gone"); !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound after delete, got %v", err)
	}
}

func TestAppendAtomicity(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateCollection("docs"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChunks("docs", []domain.Chunk{testChunk("seed", []float32{0, 0, 0, 1})}); err != nil {
		t.Fatal(err)
	}

	// Inject a dimension mismatch in the middle of the batch.
	batch := []domain.Chunk{
		testChunk("ok1", []float32{1, 0, 0, 0}),
		testChunk("bad", []float32{1, 0}),
		testChunk("ok2", []float32{0, 1, 0, 0}),
	}
	if err := s.AppendChunks("docs", batch); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	count, err := s.RecordCount("docs")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("partial write detected: record count %d, want 1", count)
	}
}

func TestAppendToMissingCollection(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendChunks("nope", []domain.Chunk{testChunk("a", []float32{1, 0, 0, 0})})
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestVectorSearchOrdering(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateCollection("docs"); err != nil {
		t.Fatal(err)
	}

	var chunks []domain.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, testChunk(fmt.Sprintf("c%d", i), []float32{float32(i), 0, 0, 0}))
	}
	if err := s.AppendChunks("docs", chunks); err != nil {
		t.Fatal(err)
	}

	results, err := s.VectorSearch("docs", []float32{3.2, 0, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("distances not ascending at %d: %v then %v", i, results[i-1].Distance, results[i].Distance)
		}
	}
	if results[0].Chunk.ID != "c3" {
		t.Errorf("nearest chunk should be c3, got %s", results[0].Chunk.ID)
	}
}

func TestVectorSearchTieBreakByInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateCollection("docs"); err != nil {
		t.Fatal(err)
	}

	// Two chunks equidistant from the query.
	chunks := []domain.Chunk{
		testChunk("first", []float32{1, 0, 0, 0}),
		testChunk("second", []float32{-1, 0, 0, 0}),
	}
	if err := s.AppendChunks("docs", chunks); err != nil {
		t.Fatal(err)
	}

	for run := 0; run < 3; run++ {
		results, err := s.VectorSearch("docs", []float32{0, 0, 0, 0}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Chunk.ID != "first" || results[1].Chunk.ID != "second" {
			t.Fatalf("tie-break not stable on run %d: %s, %s", run, results[0].Chunk.ID, results[1].Chunk.ID)
		}
	}
}

func TestVectorSearchLimitClamp(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateCollection("docs"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendChunks("docs", []domain.Chunk{testChunk("only", []float32{1, 0, 0, 0})}); err != nil {
		t.Fatal(err)
	}

	results, err := s.VectorSearch("docs", []float32{1, 0, 0, 0}, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.db")

	s, err := NewBoltCollectionStore(path, testDim)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateCollection("docs"); err != nil {
		t.Fatal(err)
	}
	batch := []domain.Chunk{
		testChunk("a", []float32{1, 0, 0, 0}),
		testChunk("b", []float32{0, 1, 0, 0}),
	}
	if err := s.AppendChunks("docs", batch); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBoltCollectionStore(path, testDim)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	count, err := reopened.RecordCount("docs")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records after reopen, got %d", count)
	}

	results, err := reopened.VectorSearch("docs", []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Chunk.ID != "a" {
		t.Errorf("expected chunk a, got %s", results[0].Chunk.ID)
	}
	if results[0].Chunk.SourceDocument != "/docs/a.md" {
		t.Errorf("source document lost on reload: %s", results[0].Chunk.SourceDocument)
	}
}
