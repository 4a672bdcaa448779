package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"semkb/internal/adapter/fs"
	"semkb/internal/adapter/manifest"
	"semkb/internal/domain"
	"semkb/internal/port"
)

// ProgressFunc is invoked once per completed document during batch
// ingestion. done counts completions so far, total is the batch size.
// Calls are serialized.
type ProgressFunc func(done, total int, path string)

// Ingestor turns raw documents into embedded chunks inside a
// collection. Single-document ingestion is all-or-nothing; batch
// ingestion isolates failures per document.
type Ingestor struct {
	store   port.CollectionStore
	chunker port.Chunker
	models  *Models
	walker  *fs.Walker
	fetcher *manifest.Fetcher
	workers int
	logger  *slog.Logger
}

func NewIngestor(store port.CollectionStore, chunker port.Chunker, models *Models, walker *fs.Walker, fetcher *manifest.Fetcher, workers int, logger *slog.Logger) *Ingestor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		store:   store,
		chunker: chunker,
		models:  models,
		walker:  walker,
		fetcher: fetcher,
		workers: workers,
		logger:  logger,
	}
}

// Ingest chunks and embeds text, then appends the resulting chunks to
// the named collection in a single atomic batch. A document that is
// empty after trimming produces a zero-chunk report, not an error.
func (g *Ingestor) Ingest(ctx context.Context, collection, text, source string) (*domain.IngestReport, error) {
	if _, err := g.store.RecordCount(collection); err != nil {
		return nil, err
	}

	segments, err := g.chunker.Chunk(text)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) {
			return &domain.IngestReport{TokenCounts: []int{}}, nil
		}
		return nil, err
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	vectors, err := g.models.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", source, err)
	}
	if len(vectors) != len(segments) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d segments", source, len(vectors), len(segments))
	}

	now := time.Now()
	chunks := make([]domain.Chunk, len(segments))
	tokenCounts := make([]int, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{
			ID:             uuid.NewString(),
			Content:        seg.Text,
			Vector:         vectors[i],
			SourceDocument: source,
			ChunkOffset:    seg.Offset,
			TokenCount:     seg.TokenCount,
			CreatedAt:      now,
		}
		tokenCounts[i] = seg.TokenCount
	}

	if err := g.store.AppendChunks(collection, chunks); err != nil {
		return nil, fmt.Errorf("persist %s: %w", source, err)
	}

	g.logger.Debug("ingested document",
		slog.String("collection", collection),
		slog.String("source", source),
		slog.Int("chunks", len(chunks)))

	return &domain.IngestReport{ChunkCount: len(chunks), TokenCounts: tokenCounts}, nil
}

// IngestFile reads a document from disk and ingests it, using the file
// path as the source identifier.
func (g *Ingestor) IngestFile(ctx context.Context, collection, path string) (*domain.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return g.Ingest(ctx, collection, string(data), path)
}

// DiscoverDocuments lists the files under dir matching the glob
// patterns, sorted and deduplicated.
func (g *Ingestor) DiscoverDocuments(dir string, patterns []string) ([]string, error) {
	return g.walker.Discover(dir, patterns)
}

// IngestDirectory discovers matching files under dir and ingests each
// one. Per-file failures are recorded in the report and do not abort
// the batch.
func (g *Ingestor) IngestDirectory(ctx context.Context, collection, dir string, patterns []string, progress ProgressFunc) (*domain.BatchReport, error) {
	files, err := g.DiscoverDocuments(dir, patterns)
	if err != nil {
		return nil, err
	}
	if _, err := g.store.RecordCount(collection); err != nil {
		return nil, err
	}
	return g.ingestFiles(ctx, collection, files, progress), nil
}

func (g *Ingestor) ingestFiles(ctx context.Context, collection string, files []string, progress ProgressFunc) *domain.BatchReport {
	outcomes := make([]domain.FileOutcome, len(files))
	jobs := make(chan int)

	var mu sync.Mutex
	done := 0

	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report, err := g.IngestFile(ctx, collection, files[i])
				outcome := domain.FileOutcome{Path: files[i], Err: err}
				if err == nil {
					outcome.ChunkCount = report.ChunkCount
				}
				outcomes[i] = outcome

				mu.Lock()
				done++
				if progress != nil {
					progress(done, len(files), files[i])
				}
				mu.Unlock()
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return g.tally(collection, outcomes)
}

func (g *Ingestor) tally(collection string, outcomes []domain.FileOutcome) *domain.BatchReport {
	report := &domain.BatchReport{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
			g.logger.Warn("document ingestion failed",
				slog.String("collection", collection),
				slog.String("source", o.Path),
				slog.Any("error", o.Err))
		} else {
			report.Processed++
		}
	}
	return report
}

// DiscoverManifest fetches an llms.txt manifest and returns the
// markdown links it declares.
func (g *Ingestor) DiscoverManifest(ctx context.Context, url string) ([]manifest.Link, error) {
	content, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(content, url)
}

// IngestLinks fetches every linked document concurrently and ingests
// the ones that arrive. Fetch failures and per-document ingestion
// failures both land in the report as failed outcomes.
func (g *Ingestor) IngestLinks(ctx context.Context, collection string, links []manifest.Link) (*domain.BatchReport, error) {
	if _, err := g.store.RecordCount(collection); err != nil {
		return nil, err
	}

	urls := make([]string, len(links))
	for i, l := range links {
		urls[i] = l.URL
	}
	fetched, failed := g.fetcher.FetchAll(ctx, urls)

	failedSet := make(map[string]bool, len(failed))
	for _, u := range failed {
		failedSet[u] = true
	}

	outcomes := make([]domain.FileOutcome, 0, len(urls))
	for _, u := range urls {
		if failedSet[u] {
			outcomes = append(outcomes, domain.FileOutcome{
				Path: u,
				Err:  fmt.Errorf("%w: %s", domain.ErrManifestFetch, u),
			})
			continue
		}
		report, err := g.Ingest(ctx, collection, fetched[u], u)
		outcome := domain.FileOutcome{Path: u, Err: err}
		if err == nil {
			outcome.ChunkCount = report.ChunkCount
		}
		outcomes = append(outcomes, outcome)
	}

	return g.tally(collection, outcomes), nil
}

// IngestManifest resolves an llms.txt manifest and ingests every
// document it links to.
func (g *Ingestor) IngestManifest(ctx context.Context, collection, url string) (*domain.BatchReport, error) {
	links, err := g.DiscoverManifest(ctx, url)
	if err != nil {
		return nil, err
	}
	return g.IngestLinks(ctx, collection, links)
}
