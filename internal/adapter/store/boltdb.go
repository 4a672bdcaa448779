package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"semkb/internal/domain"
)

var (
	bucketCollections = []byte("collections")
	bucketChunks      = []byte("chunks")
)

// BoltCollectionStore is a bbolt-backed multi-collection chunk store.
// Each collection is a nested bucket holding chunks keyed by insertion
// sequence. Vectors are additionally cached in memory per collection
// for brute-force L2 search; bbolt's single-writer transaction gives
// the all-or-nothing append guarantee.
type BoltCollectionStore struct {
	db        *bbolt.DB
	dimension int

	mu          sync.RWMutex
	collections map[string][]domain.Chunk
}

type storedChunk struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Vector         []float32 `json:"vector"`
	SourceDocument string    `json:"source_document"`
	ChunkOffset    int       `json:"chunk_offset"`
	TokenCount     int       `json:"token_count"`
	CreatedAt      int64     `json:"created_at"`
}

// NewBoltCollectionStore opens (creating if needed) the store at path.
// dimension is the deployment-configured embedding dimension every
// persisted vector must match.
func NewBoltCollectionStore(path string, dimension int) (*BoltCollectionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltCollectionStore{
		db:          db,
		dimension:   dimension,
		collections: make(map[string][]domain.Chunk),
	}
	if err := s.loadCollections(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	return s, nil
}

// loadCollections fills the in-memory cache from disk, preserving
// insertion order within each collection.
func (s *BoltCollectionStore) loadCollections() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		return root.ForEachBucket(func(name []byte) error {
			chunks := root.Bucket(name).Bucket(bucketChunks)
			var loaded []domain.Chunk
			if chunks != nil {
				err := chunks.ForEach(func(_, v []byte) error {
					var sc storedChunk
					if err := json.Unmarshal(v, &sc); err != nil {
						return fmt.Errorf("corrupt chunk in collection %s: %w", name, err)
					}
					loaded = append(loaded, chunkFromStored(sc))
					return nil
				})
				if err != nil {
					return err
				}
			}
			s.collections[string(name)] = loaded
			return nil
		})
	})
}

func chunkFromStored(sc storedChunk) domain.Chunk {
	return domain.Chunk{
		ID:             sc.ID,
		Content:        sc.Content,
		Vector:         sc.Vector,
		SourceDocument: sc.SourceDocument,
		ChunkOffset:    sc.ChunkOffset,
		TokenCount:     sc.TokenCount,
		CreatedAt:      time.Unix(sc.CreatedAt, 0),
	}
}

// CreateCollection creates an empty collection.
func (s *BoltCollectionStore) CreateCollection(name string) error {
	if err := domain.ValidateCollectionName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionExists, name)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		col, err := tx.Bucket(bucketCollections).CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		_, err = col.CreateBucket(bucketChunks)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	s.collections[name] = nil
	return nil
}

// ListCollections returns all collection names, sorted for stable
// output.
func (s *BoltCollectionStore) ListCollections() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCollection removes a collection and all its chunks.
func (s *BoltCollectionStore) DeleteCollection(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).DeleteBucket([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}

	delete(s.collections, name)
	return nil
}

// RecordCount returns the number of chunks stored in a collection.
func (s *BoltCollectionStore) RecordCount(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return len(chunks), nil
}

// AppendChunks persists a batch all-or-nothing. Any dimension mismatch
// fails the whole call before anything is written.
func (s *BoltCollectionStore) AppendChunks(name string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	for i, chunk := range chunks {
		if len(chunk.Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d has dimension %d, expected %d",
				domain.ErrDimensionMismatch, i, len(chunk.Vector), s.dimension)
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCollections).Bucket([]byte(name)).Bucket(bucketChunks)
		for _, chunk := range chunks {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)

			data, err := json.Marshal(storedChunk{
				ID:             chunk.ID,
				Content:        chunk.Content,
				Vector:         chunk.Vector,
				SourceDocument: chunk.SourceDocument,
				ChunkOffset:    chunk.ChunkOffset,
				TokenCount:     chunk.TokenCount,
				CreatedAt:      chunk.CreatedAt.Unix(),
			})
			if err != nil {
				return err
			}
			if err := bucket.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append chunks to %s: %w", name, err)
	}

	s.collections[name] = append(s.collections[name], chunks...)
	return nil
}

// VectorSearch returns up to limit nearest chunks by L2 distance,
// ascending. Ties keep insertion order.
func (s *BoltCollectionStore) VectorSearch(name string, query []float32, limit int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, expected %d",
			domain.ErrDimensionMismatch, len(query), s.dimension)
	}
	if limit <= 0 || len(chunks) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		scored[i] = domain.ScoredChunk{
			Chunk:    chunk,
			Distance: l2Distance(query, chunk.Vector),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

// Close closes the underlying database.
func (s *BoltCollectionStore) Close() error {
	return s.db.Close()
}

// l2Distance is the Euclidean distance between two vectors of equal
// length.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
