package usecase

import (
	"context"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

const DefaultTopK = 8

type Retriever struct {
	embedder   ports.Embedder
	store      ports.VectorStore
	collection string
	defaultK   int
}

func NewRetriever(embedder ports.Embedder, store ports.VectorStore, collection string, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	return &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		defaultK:   defaultK,
	}
}

// Retrieve returns at most k chunks ordered by descending similarity. A filter that
// matches nothing yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query domain.Query, filter domain.RetrievalFilter, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = r.defaultK
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, query.RawText)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", err)
	}

	result, err := r.store.Search(ctx, r.collection, queryVector, k, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexOperation, "search collection", err)
	}
	if len(result) > k {
		result = result[:k]
	}
	if result == nil {
		result = domain.RetrievalResult{}
	}
	return result, nil
}
