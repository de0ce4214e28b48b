package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

// IngestUseCase runs the offline pipeline Loader -> Chunker -> Indexer as a single
// all-or-nothing rebuild.
type IngestUseCase struct {
	entities   []string
	collection domain.Collection

	loader  *CorpusLoader
	chunker ports.Chunker
	indexer *Indexer

	runs     ports.IngestionRunStore
	observer ports.IngestionObserver
	logger   *slog.Logger
	now      func() time.Time
}

type IngestDeps struct {
	Loader   *CorpusLoader
	Chunker  ports.Chunker
	Indexer  *Indexer
	Runs     ports.IngestionRunStore
	Observer ports.IngestionObserver
	Logger   *slog.Logger
}

func NewIngestUseCase(entities []string, collection domain.Collection, deps IngestDeps) *IngestUseCase {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		entities:   entities,
		collection: collection,
		loader:     deps.Loader,
		chunker:    deps.Chunker,
		indexer:    deps.Indexer,
		runs:       deps.Runs,
		observer:   deps.Observer,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *IngestUseCase) Rebuild(ctx context.Context) (domain.IngestionReport, error) {
	report := domain.IngestionReport{
		RunID:      uuid.NewString(),
		Collection: uc.collection.Name,
		Entities:   append([]string(nil), uc.entities...),
		StartedAt:  uc.now(),
	}
	logger := uc.logger.With("run_id", report.RunID, "collection", report.Collection)

	if err := uc.startRun(ctx, report); err != nil {
		report.FinishedAt = uc.now()
		uc.observe(report, err)
		return report, err
	}

	err := uc.rebuild(ctx, &report)
	report.FinishedAt = uc.now()

	if finishErr := uc.finishRun(ctx, report, err); finishErr != nil {
		if err == nil {
			err = finishErr
		} else {
			err = fmt.Errorf("%w; record failed run: %v", err, finishErr)
		}
	}
	uc.observe(report, err)

	if err != nil {
		logger.Error("ingestion_failed", "error", err, "duration_ms", report.Duration().Milliseconds())
		return report, err
	}
	logger.Info("ingestion_completed",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"skipped", len(report.Skipped),
		"duration_ms", report.Duration().Milliseconds(),
	)
	return report, nil
}

func (uc *IngestUseCase) rebuild(ctx context.Context, report *domain.IngestionReport) error {
	docs, skipped := uc.loader.Load(ctx, uc.entities)
	report.Documents = len(docs)
	report.Skipped = skipped
	if len(docs) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "load corpus", errors.New("no documents could be loaded"))
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, uc.chunker.SplitDocument(doc)...)
	}
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk corpus", errors.New("chunking produced zero chunks"))
	}

	indexed, err := uc.indexer.ResetAndLoad(ctx, uc.collection, chunks)
	if err != nil {
		return err
	}
	report.Indexed = indexed
	return nil
}

// Drop destroys the collection and records it in the ledger as dropped, so the readiness
// gate rejects queries until the next successful rebuild.
func (uc *IngestUseCase) Drop(ctx context.Context) error {
	runID := uuid.NewString()
	if uc.runs != nil {
		run := &domain.IngestionRun{
			ID:         runID,
			Collection: uc.collection.Name,
			Status:     domain.RunStatusRunning,
			StartedAt:  uc.now(),
		}
		if err := uc.runs.StartRun(ctx, run); err != nil {
			return fmt.Errorf("record drop start: %w", err)
		}
	}

	dropErr := uc.indexer.Drop(ctx, uc.collection.Name)
	if uc.runs == nil {
		return dropErr
	}

	status, msg := domain.RunStatusDropped, "collection dropped"
	if dropErr != nil {
		status, msg = domain.RunStatusFailed, dropErr.Error()
	}
	if err := uc.runs.FinishRun(context.WithoutCancel(ctx), runID, status, 0, msg); err != nil {
		if dropErr != nil {
			return fmt.Errorf("%w; record failed drop: %v", dropErr, err)
		}
		return fmt.Errorf("record drop finish: %w", err)
	}
	if dropErr != nil {
		return dropErr
	}
	uc.logger.Info("collection_dropped", "collection", uc.collection.Name, "run_id", runID)
	return nil
}

func (uc *IngestUseCase) startRun(ctx context.Context, report domain.IngestionReport) error {
	if uc.runs == nil {
		return nil
	}
	run := &domain.IngestionRun{
		ID:         report.RunID,
		Collection: report.Collection,
		Status:     domain.RunStatusRunning,
		StartedAt:  report.StartedAt,
	}
	if err := uc.runs.StartRun(ctx, run); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

func (uc *IngestUseCase) finishRun(ctx context.Context, report domain.IngestionReport, runErr error) error {
	if uc.runs == nil {
		return nil
	}
	// The ledger must be updated even when the rebuild was cancelled.
	ctx = context.WithoutCancel(ctx)

	status, msg := domain.RunStatusReady, ""
	if runErr != nil {
		status, msg = domain.RunStatusFailed, runErr.Error()
	}
	if err := uc.runs.FinishRun(ctx, report.RunID, status, report.Indexed, msg); err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

func (uc *IngestUseCase) observe(report domain.IngestionReport, err error) {
	if uc.observer != nil {
		uc.observer.ObserveIngestion(report, err)
	}
}
