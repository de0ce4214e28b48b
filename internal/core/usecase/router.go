package usecase

import "github.com/kirillkom/athlete-rag/internal/core/domain"

// EntityRecognizer decides which known entity, if any, a text is about.
type EntityRecognizer interface {
	Recognize(text string) (string, bool)
}

type QueryRouter struct {
	recognizer EntityRecognizer
}

func NewQueryRouter(recognizer EntityRecognizer) *QueryRouter {
	return &QueryRouter{recognizer: recognizer}
}

// Route pins retrieval to the recognized entity or leaves it unfiltered.
func (r *QueryRouter) Route(query domain.Query) domain.RetrievalFilter {
	if r.recognizer == nil {
		return domain.RetrievalFilter{}
	}
	entity, ok := r.recognizer.Recognize(query.RawText)
	if !ok {
		return domain.RetrievalFilter{}
	}
	return domain.RetrievalFilter{Entity: entity}
}
