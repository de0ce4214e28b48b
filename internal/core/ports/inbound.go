package ports

import (
	"context"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

// QueryService is the inbound contract for answering questions.
type QueryService interface {
	Answer(ctx context.Context, question string, limit int) (*domain.Answer, error)
}

// CorpusIngestor is the inbound contract for full collection rebuilds.
type CorpusIngestor interface {
	Rebuild(ctx context.Context) (domain.IngestionReport, error)
	Drop(ctx context.Context) error
}

// RebuildRequester schedules an asynchronous rebuild.
type RebuildRequester interface {
	RequestRebuild(ctx context.Context) (domain.RebuildRequest, error)
}

// CorpusStatusReader exposes the latest rebuild state.
type CorpusStatusReader interface {
	LatestRun(ctx context.Context) (*domain.IngestionRun, error)
}
