package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

// ReadinessChecker reports whether the collection may be served.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// QueryUseCase runs ROUTE -> RETRIEVE -> SYNTHESIZE once per question, with no retries.
type QueryUseCase struct {
	router      *QueryRouter
	retriever   *Retriever
	synthesizer *AnswerSynthesizer
	readiness   ReadinessChecker
}

func NewQueryUseCase(
	router *QueryRouter,
	retriever *Retriever,
	synthesizer *AnswerSynthesizer,
	readiness ReadinessChecker,
) *QueryUseCase {
	return &QueryUseCase{
		router:      router,
		retriever:   retriever,
		synthesizer: synthesizer,
		readiness:   readiness,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string, limit int) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}
	if uc.readiness != nil {
		if err := uc.readiness.Ready(ctx); err != nil {
			return nil, err
		}
	}

	query := domain.Query{RawText: question}
	filter := uc.router.Route(query)

	result, err := uc.retriever.Retrieve(ctx, query, filter, limit)
	if err != nil {
		return nil, err
	}

	answer, err := uc.synthesizer.Synthesize(ctx, query, result)
	if answer != nil {
		answer.Filter = filter
	}
	return answer, err
}
