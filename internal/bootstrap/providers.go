package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/athlete-rag/internal/config"
	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/embedding/hugot"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/llm/groq"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/source/localdocs"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/source/wikipedia"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/vector/qdrant"
)

func collectionFromConfig(cfg config.Config) (domain.Collection, error) {
	c := domain.Collection{
		Name:      strings.TrimSpace(cfg.Collection),
		Dimension: cfg.VectorDimension,
		Distance:  domain.Distance(cfg.Distance),
	}
	if c.Name == "" {
		return c, domain.WrapError(domain.ErrInvalidInput, "collection config", errors.New("COLLECTION_NAME is empty"))
	}
	if c.Dimension <= 0 {
		return c, domain.WrapError(domain.ErrInvalidInput, "collection config", fmt.Errorf("VECTOR_DIMENSION must be positive, got %d", c.Dimension))
	}
	if !c.Distance.Valid() {
		return c, domain.WrapError(domain.ErrInvalidInput, "collection config", fmt.Errorf("unsupported VECTOR_DISTANCE %q", cfg.Distance))
	}
	return c, nil
}

func resilienceConfig(rc config.ResilienceConfig) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = rc.RetryMaxAttempts
	out.RetryInitialBackoff = rc.RetryInitialBackoff
	out.RetryMaxBackoff = rc.RetryMaxBackoff
	out.BreakerEnabled = rc.BreakerEnabled
	if rc.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(rc.BreakerMinRequests)
	}
	out.BreakerFailureRatio = rc.BreakerFailureRatio
	out.BreakerOpenTimeout = rc.BreakerOpenTimeout
	return out
}

func newVectorStore(ctx context.Context, cfg config.Config, db *sql.DB, executor *resilience.Executor) (ports.VectorStore, error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case "", "qdrant":
		return qdrant.New(cfg.QdrantURL,
			qdrant.WithAPIKey(cfg.QdrantAPIKey),
			qdrant.WithExecutor(executor),
		), nil
	case "pgvector":
		if db == nil {
			return nil, errors.New("pgvector backend requires a postgres connection")
		}
		store := pgvector.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure pgvector schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q (want qdrant or pgvector)", cfg.VectorBackend)
	}
}

// newEmbedder returns the embedder and a release func for providers holding native resources.
func newEmbedder(cfg config.Config, executor *resilience.Executor) (ports.Embedder, func(), error) {
	switch strings.ToLower(cfg.EmbeddingProvider) {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.WithExecutor(executor))
		return ollama.NewEmbedder(client), nil, nil
	case "hugot":
		embedder, err := hugot.New(cfg.HugotModel, cfg.HugotModelDir)
		if err != nil {
			return nil, nil, err
		}
		return embedder, func() { _ = embedder.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q (want ollama or hugot)", cfg.EmbeddingProvider)
	}
}

func newGenerator(cfg config.Config, executor *resilience.Executor) (ports.Generator, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "", "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
			ollama.WithTemperature(cfg.LLMTemperature),
			ollama.WithExecutor(executor),
		)
		return ollama.NewGenerator(client), nil
	case "groq":
		if strings.TrimSpace(cfg.GroqAPIKey) == "" {
			return nil, errors.New("LLM_PROVIDER=groq requires GROQ_API_KEY")
		}
		return groq.New(cfg.GroqAPIKey,
			groq.WithBaseURL(cfg.GroqBaseURL),
			groq.WithModel(cfg.GroqModel),
			groq.WithTemperature(cfg.LLMTemperature),
			groq.WithExecutor(executor),
		), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (want ollama or groq)", cfg.LLMProvider)
	}
}

func newDocumentSource(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (ports.DocumentSource, error) {
	switch strings.ToLower(cfg.DocumentSource) {
	case "", "wikipedia":
		opts := []wikipedia.Option{wikipedia.WithExecutor(executor)}
		if cfg.WikipediaSnapshots {
			storage, err := localfs.New(cfg.StoragePath)
			if err != nil {
				return nil, fmt.Errorf("init snapshot storage: %w", err)
			}
			opts = append(opts, wikipedia.WithSnapshots(storage, logger))
		}
		return wikipedia.New(wikipedia.Config{
			APIURL:            cfg.WikipediaAPIURL,
			MaxChars:          cfg.WikipediaMaxChars,
			RequestsPerSecond: cfg.WikipediaRPS,
		}, opts...), nil
	case "local":
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init document storage: %w", err)
		}
		return localdocs.New(storage), nil
	default:
		return nil, fmt.Errorf("unknown DOCUMENT_SOURCE %q (want wikipedia or local)", cfg.DocumentSource)
	}
}
