package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/athlete-rag/internal/config"
	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
	"github.com/kirillkom/athlete-rag/internal/core/usecase"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/resilience"
)

// Options select which optional parts of the graph a front end needs.
type Options struct {
	Logger *slog.Logger
	// WithQueue connects to NATS; only the API and the worker need it.
	WithQueue bool
	// Observer exports retry and breaker events.
	Observer resilience.Observer
	// IngestionObserver receives rebuild outcomes.
	IngestionObserver ports.IngestionObserver
}

type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Catalog    *domain.EntityCatalog
	Collection domain.Collection

	Runs      *postgres.IngestionRunRepository
	Readiness *usecase.LedgerReadiness
	Queue     *nats.Queue

	QueryUC   *usecase.QueryUseCase
	IngestUC  *usecase.IngestUseCase
	RebuildUC *usecase.RebuildRequestUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	if err := app.build(ctx, opts); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config

	catalog, err := config.LoadEntityCatalog(cfg.EntityCatalogPath)
	if err != nil {
		return fmt.Errorf("load entity catalog: %w", err)
	}
	a.Catalog = catalog

	collection, err := collectionFromConfig(cfg)
	if err != nil {
		return err
	}
	a.Collection = collection

	executor := resilience.NewExecutor(resilienceConfig(cfg.Resilience),
		resilience.WithLogger(a.Logger),
		resilience.WithObserver(opts.Observer),
	)

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	a.onClose(func() { _ = db.Close() })

	runs := postgres.NewIngestionRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	a.Runs = runs
	a.Readiness = usecase.NewLedgerReadiness(runs, collection.Name)

	store, err := newVectorStore(ctx, cfg, db, executor)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	embedder, closeEmbedder, err := newEmbedder(cfg, executor)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	a.onClose(closeEmbedder)
	generator, err := newGenerator(cfg, executor)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	source, err := newDocumentSource(cfg, executor, a.Logger)
	if err != nil {
		return fmt.Errorf("init document source: %w", err)
	}

	a.QueryUC = usecase.NewQueryUseCase(
		usecase.NewQueryRouter(catalog),
		usecase.NewRetriever(embedder, store, collection.Name, cfg.RAGTopK),
		usecase.NewAnswerSynthesizer(generator),
		a.Readiness,
	)
	a.IngestUC = usecase.NewIngestUseCase(catalog.Labels(), collection, usecase.IngestDeps{
		Loader:  usecase.NewCorpusLoader(source, a.Logger),
		Chunker: chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Indexer: usecase.NewIndexer(embedder, store, a.Logger, usecase.IndexerOptions{
			EmbedBatchSize:  cfg.EmbedBatchSize,
			UpsertBatchSize: cfg.UpsertBatchSize,
		}),
		Runs:     runs,
		Observer: opts.IngestionObserver,
		Logger:   a.Logger,
	})

	if opts.WithQueue {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             a.Logger,
		})
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		a.onClose(queue.Close)
		a.Queue = queue
		a.RebuildUC = usecase.NewRebuildRequestUseCase(queue, collection.Name)
	}

	a.Logger.Info("bootstrap_completed",
		"collection", collection.Name,
		"entities", catalog.Len(),
		"vector_backend", cfg.VectorBackend,
		"embedding_provider", cfg.EmbeddingProvider,
		"llm_provider", cfg.LLMProvider,
		"document_source", cfg.DocumentSource,
	)
	return nil
}

func (a *App) onClose(fn func()) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// Close releases clients in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
