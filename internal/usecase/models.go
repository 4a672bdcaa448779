package usecase

import (
	"context"

	"semkb/internal/port"
)

// Models owns the process-wide model handles. It is constructed once
// at startup, opened before serving traffic, and passed explicitly to
// the ingestion and retrieval usecases. Inference calls are safe for
// concurrent use after Open.
type Models struct {
	Embedder port.Embedder
	Reranker port.Reranker
}

type opener interface {
	Open(ctx context.Context) error
}

type closer interface {
	Close()
}

// Open verifies both models are loadable and reachable. A failure here
// is fatal: the process must refuse to serve rather than degrade
// silently.
func (m *Models) Open(ctx context.Context) error {
	if o, ok := m.Embedder.(opener); ok {
		if err := o.Open(ctx); err != nil {
			return err
		}
	}
	if o, ok := m.Reranker.(opener); ok {
		if err := o.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases model resources.
func (m *Models) Close() {
	if c, ok := m.Embedder.(closer); ok {
		c.Close()
	}
	if c, ok := m.Reranker.(closer); ok {
		c.Close()
	}
}
