package domain

import "time"

// Chunk is the atomic retrievable unit: a bounded span of a document's
// text together with its embedding vector. Chunks are immutable once
// persisted and live until their collection is deleted.
type Chunk struct {
	ID             string
	Content        string
	Vector         []float32
	SourceDocument string
	ChunkOffset    int
	TokenCount     int
	CreatedAt      time.Time
}

// Segment is a chunker output: a contiguous span of the source text
// before embedding. Offset is the byte offset of the span's start in
// the original document.
type Segment struct {
	Text       string
	Offset     int
	TokenCount int
}

// ScoredChunk pairs a stored chunk with its vector-search distance
// (L2, lower is closer).
type ScoredChunk struct {
	Chunk    Chunk
	Distance float64
}

// ResultItem is a final search result after reranking.
type ResultItem struct {
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
	SourceDocument string  `json:"source_document"`
	ChunkOffset    int     `json:"chunk_offset"`
}

// IngestReport summarizes a single-document ingestion.
type IngestReport struct {
	ChunkCount  int
	TokenCounts []int
}

// FileOutcome records the result of ingesting one file within a batch.
// Err is nil on success.
type FileOutcome struct {
	Path       string
	ChunkCount int
	Err        error
}

// BatchReport aggregates per-file outcomes of a batch ingestion.
type BatchReport struct {
	Processed int
	Failed    int
	Outcomes  []FileOutcome
}
