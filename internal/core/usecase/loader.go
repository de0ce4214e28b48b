package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

// CorpusLoader fetches one document per entity label and tolerates per-label failures.
type CorpusLoader struct {
	source ports.DocumentSource
	logger *slog.Logger
}

func NewCorpusLoader(source ports.DocumentSource, logger *slog.Logger) *CorpusLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorpusLoader{
		source: source,
		logger: logger,
	}
}

// Load returns successfully fetched documents in label order together with the labels it
// had to skip. A failing source never aborts the whole load.
func (l *CorpusLoader) Load(ctx context.Context, labels []string) ([]domain.Document, []domain.SkippedEntity) {
	docs := make([]domain.Document, 0, len(labels))
	var skipped []domain.SkippedEntity

	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			skipped = append(skipped, domain.SkippedEntity{Entity: label, Reason: err.Error()})
			continue
		}

		doc, err := l.fetch(ctx, label)
		if err != nil {
			l.logger.Warn("source_fetch_skipped", "entity", label, "error", err)
			skipped = append(skipped, domain.SkippedEntity{Entity: label, Reason: err.Error()})
			continue
		}

		l.logger.Info("source_fetched", "entity", label, "source_id", doc.SourceID, "chars", len([]rune(doc.Text)))
		docs = append(docs, doc)
	}
	return docs, skipped
}

func (l *CorpusLoader) fetch(ctx context.Context, label string) (domain.Document, error) {
	doc, err := l.source.Fetch(ctx, label)
	if err != nil {
		return domain.Document{}, domain.WrapError(domain.ErrSourceFetch, "fetch "+label, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return domain.Document{}, domain.WrapError(domain.ErrSourceFetch, "fetch "+label, errors.New("empty document"))
	}
	// The loader is the authority on which entity a document belongs to.
	doc.Entity = label
	return doc, nil
}
