package port

import "semkb/internal/domain"

// CollectionStore is durable multi-collection chunk storage with
// nearest-neighbor search per collection.
type CollectionStore interface {
	// CreateCollection creates an empty collection. Fails with
	// domain.ErrInvalidCollectionName or domain.ErrCollectionExists.
	CreateCollection(name string) error

	// ListCollections returns all current collection names, each
	// exactly once.
	ListCollections() ([]string, error)

	// DeleteCollection removes a collection and all contained chunks
	// irrecoverably. Fails with domain.ErrCollectionNotFound.
	DeleteCollection(name string) error

	// RecordCount returns the number of chunks stored in a collection.
	RecordCount(name string) (int, error)

	// AppendChunks persists a batch all-or-nothing: on any failure
	// (e.g. dimension mismatch) nothing is written.
	AppendChunks(name string, chunks []domain.Chunk) error

	// VectorSearch returns up to limit nearest chunks by L2 distance,
	// ascending (closer first).
	VectorSearch(name string, query []float32, limit int) ([]domain.ScoredChunk, error)

	// Close releases the underlying storage.
	Close() error
}
