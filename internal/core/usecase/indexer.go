package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

const (
	defaultEmbedBatchSize  = 32
	defaultUpsertBatchSize = 64
)

type IndexerOptions struct {
	EmbedBatchSize  int
	UpsertBatchSize int
}

// Indexer rebuilds a collection from scratch. A run either indexes every chunk or fails.
type Indexer struct {
	embedder ports.Embedder
	store    ports.VectorStore
	logger   *slog.Logger

	embedBatch  int
	upsertBatch int
}

func NewIndexer(embedder ports.Embedder, store ports.VectorStore, logger *slog.Logger, opts IndexerOptions) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatchSize
	}
	if opts.UpsertBatchSize <= 0 {
		opts.UpsertBatchSize = defaultUpsertBatchSize
	}
	return &Indexer{
		embedder:    embedder,
		store:       store,
		logger:      logger,
		embedBatch:  opts.EmbedBatchSize,
		upsertBatch: opts.UpsertBatchSize,
	}
}

// ResetAndLoad drops the collection if present, recreates it empty and upserts every chunk.
// It returns the number of points written.
func (ix *Indexer) ResetAndLoad(ctx context.Context, collection domain.Collection, chunks []domain.Chunk) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}

	// Embed before touching the store so an embedding failure leaves the previous
	// collection in place.
	points, err := ix.embed(ctx, collection.Dimension, chunks)
	if err != nil {
		return 0, err
	}

	if err := ix.reset(ctx, collection); err != nil {
		return 0, err
	}

	if err := ix.upsert(ctx, collection.Name, points); err != nil {
		return 0, err
	}

	ix.logger.Info("collection_loaded", "collection", collection.Name, "points", len(points))
	return len(points), nil
}

// Drop deletes the collection when it exists.
func (ix *Indexer) Drop(ctx context.Context, name string) error {
	exists, err := ix.store.CollectionExists(ctx, name)
	if err != nil {
		return domain.WrapError(domain.ErrIndexOperation, "check collection", err)
	}
	if !exists {
		ix.logger.Info("collection_absent", "collection", name)
		return nil
	}
	if err := ix.store.DeleteCollection(ctx, name); err != nil {
		return domain.WrapError(domain.ErrIndexOperation, "delete collection", err)
	}
	ix.logger.Info("collection_deleted", "collection", name)
	return nil
}

func (ix *Indexer) reset(ctx context.Context, collection domain.Collection) error {
	if err := ix.Drop(ctx, collection.Name); err != nil {
		return err
	}
	if err := ix.store.CreateCollection(ctx, collection); err != nil {
		return domain.WrapError(domain.ErrIndexOperation, "create collection", err)
	}
	ix.logger.Info("collection_created",
		"collection", collection.Name,
		"dimension", collection.Dimension,
		"distance", string(collection.Distance),
	)
	return nil
}

func (ix *Indexer) embed(ctx context.Context, dimension int, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	points := make([]domain.EmbeddedChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.embedBatch {
		end := min(start+ix.embedBatch, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbedding, fmt.Sprintf("embed chunks %d-%d", start, end), err)
		}
		if len(vectors) != len(batch) {
			return nil, domain.WrapError(
				domain.ErrEmbedding,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)),
			)
		}
		for i, vector := range vectors {
			if len(vector) != dimension {
				return nil, domain.WrapError(
					domain.ErrEmbedding,
					"embed chunks",
					fmt.Errorf("vector dimension %d, collection expects %d", len(vector), dimension),
				)
			}
			points = append(points, domain.EmbeddedChunk{Chunk: batch[i], Vector: vector})
		}
	}
	return points, nil
}

func (ix *Indexer) upsert(ctx context.Context, collection string, points []domain.EmbeddedChunk) error {
	for start := 0; start < len(points); start += ix.upsertBatch {
		end := min(start+ix.upsertBatch, len(points))
		if err := ix.store.Upsert(ctx, collection, points[start:end]); err != nil {
			return domain.WrapError(domain.ErrIndexOperation, fmt.Sprintf("upsert points %d-%d", start, end), err)
		}
	}
	return nil
}

func validateCollection(c domain.Collection) error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate collection", fmt.Errorf("collection name is required"))
	case c.Dimension <= 0:
		return domain.WrapError(domain.ErrInvalidInput, "validate collection", fmt.Errorf("dimension must be positive, got %d", c.Dimension))
	case !c.Distance.Valid():
		return domain.WrapError(domain.ErrInvalidInput, "validate collection", fmt.Errorf("unsupported distance %q", c.Distance))
	}
	return nil
}
