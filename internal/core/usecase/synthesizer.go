package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

const answerPromptTemplate = `Answer the question based only on the context below.

Context:
{context}

Question: {question}`

type AnswerSynthesizer struct {
	generator ports.Generator
}

func NewAnswerSynthesizer(generator ports.Generator) *AnswerSynthesizer {
	return &AnswerSynthesizer{generator: generator}
}

// Synthesize always calls the generator, even with an empty context. On failure the
// returned Answer still carries the sources so callers can show them.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, query domain.Query, result domain.RetrievalResult) (*domain.Answer, error) {
	prompt := BuildPrompt(BuildContext(result), query.RawText)

	text, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return &domain.Answer{Sources: result}, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}
	return &domain.Answer{
		Text:    text,
		Sources: result,
	}, nil
}

func BuildContext(result domain.RetrievalResult) string {
	return strings.Join(result.Texts(), "\n\n")
}

func BuildPrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(answerPromptTemplate)
}
