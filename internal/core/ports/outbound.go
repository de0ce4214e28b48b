package ports

import (
	"context"
	"io"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

// DocumentSource fetches the raw document for one entity label.
type DocumentSource interface {
	Fetch(ctx context.Context, entity string) (domain.Document, error)
}

// ObjectStorage stores local source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Chunker splits a document into overlapping windows that keep its entity metadata.
type Chunker interface {
	SplitDocument(doc domain.Document) []domain.Chunk
}

// Embedder builds vectors for chunks and query text. Both methods must use the same model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore owns collection lifecycle and similarity search.
type VectorStore interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, collection domain.Collection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, points []domain.EmbeddedChunk) error
	Search(ctx context.Context, collection string, queryVector []float32, limit int, filter domain.RetrievalFilter) (domain.RetrievalResult, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Generator completes a filled prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IngestionRunStore is the ledger of collection rebuilds.
type IngestionRunStore interface {
	EnsureSchema(ctx context.Context) error
	StartRun(ctx context.Context, run *domain.IngestionRun) error
	FinishRun(ctx context.Context, id string, status domain.RunStatus, chunkCount int, errMessage string) error
	LatestRun(ctx context.Context, collection string) (*domain.IngestionRun, error)
}

// RebuildQueue publishes/consumes collection rebuild requests.
type RebuildQueue interface {
	PublishRebuildRequested(ctx context.Context, request domain.RebuildRequest) error
	SubscribeRebuildRequested(ctx context.Context, handler func(context.Context, domain.RebuildRequest) error) error
}

// IngestionObserver receives ingestion run outcomes.
type IngestionObserver interface {
	ObserveIngestion(report domain.IngestionReport, err error)
}
