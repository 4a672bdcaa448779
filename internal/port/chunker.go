package port

import "semkb/internal/domain"

// Chunker splits document text into ordered, non-overlapping segments
// covering the document, each within the configured token bound.
type Chunker interface {
	Chunk(text string) ([]domain.Segment, error)
}
