package localdocs

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/extractor"
)

// Source reads <slug>.<ext> files for each entity from object storage.
type Source struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Source {
	return &Source{storage: storage}
}

func (s *Source) Fetch(ctx context.Context, entity string) (domain.Document, error) {
	slug := domain.Slug(entity)
	if slug == "" {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "local document fetch", fmt.Errorf("entity %q has no usable slug", entity))
	}

	for _, ext := range extractor.Extensions {
		key := slug + ext
		ok, err := s.storage.Exists(ctx, key)
		if err != nil {
			return domain.Document{}, fmt.Errorf("check %s: %w", key, err)
		}
		if !ok {
			continue
		}
		text, err := s.read(ctx, key)
		if err != nil {
			return domain.Document{}, err
		}
		return domain.Document{
			Text:     text,
			SourceID: "file://" + key,
			Entity:   entity,
		}, nil
	}
	return domain.Document{}, domain.WrapError(domain.ErrNotFound, "local document fetch", fmt.Errorf("no file for %q (slug %s)", entity, slug))
}

func (s *Source) read(ctx context.Context, key string) (string, error) {
	reader, err := s.storage.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	text, err := extractor.Text(key, raw)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", key, err)
	}
	return text, nil
}
