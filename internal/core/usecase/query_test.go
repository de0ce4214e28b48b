package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/chunking"
)

var boxerPages = map[string]string{
	"Manny Pacquiao": strings.Repeat("Manny Pacquiao is a Filipino boxer who won world titles in eight weight divisions. ", 20),
	"Nonito Donaire": strings.Repeat("Nonito Donaire is a Filipino boxer known as The Filipino Flash and a four-division champion. ", 20),
}

type pipeline struct {
	ingest    *IngestUseCase
	query     *QueryUseCase
	store     *memoryStoreFake
	embedder  *hashEmbedderFake
	generator *generatorFake
	runs      *runStoreFake
}

func newPipeline(t *testing.T, source *sourceFake) *pipeline {
	t.Helper()
	p := &pipeline{
		store:     newMemoryStoreFake(),
		embedder:  &hashEmbedderFake{dim: 32},
		generator: &generatorFake{},
		runs:      newRunStoreFake(),
	}
	collection := domain.Collection{Name: "filipinoboxers", Dimension: 32, Distance: domain.DistanceCosine}

	p.ingest = NewIngestUseCase(domain.DefaultEntities, collection, IngestDeps{
		Loader:  NewCorpusLoader(source, nil),
		Chunker: chunking.NewSplitter(chunking.DefaultChunkSize, chunking.DefaultChunkOverlap),
		Indexer: NewIndexer(p.embedder, p.store, nil, IndexerOptions{}),
		Runs:    p.runs,
	})
	p.query = NewQueryUseCase(
		NewQueryRouter(domain.MustEntityCatalog(domain.DefaultEntities...)),
		NewRetriever(p.embedder, p.store, collection.Name, DefaultTopK),
		NewAnswerSynthesizer(p.generator),
		NewLedgerReadiness(p.runs, collection.Name),
	)
	return p
}

func TestAnswerScopesNamedAthlete(t *testing.T) {
	p := newPipeline(t, &sourceFake{docs: boxerPages})
	if _, err := p.ingest.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	answer, err := p.query.Answer(context.Background(), "How many world titles does Manny Pacquiao hold?", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Filter.Entity != "Manny Pacquiao" {
		t.Fatalf("expected Pacquiao filter, got %+v", answer.Filter)
	}
	if answer.Text == "" || len(answer.Sources) == 0 {
		t.Fatalf("expected text and sources, got %+v", answer)
	}
	if len(answer.Sources) > DefaultTopK {
		t.Fatalf("expected at most %d sources, got %d", DefaultTopK, len(answer.Sources))
	}
	for _, source := range answer.Sources {
		if source.Entity != "Manny Pacquiao" {
			t.Fatalf("source from %q leaked into scoped answer", source.Entity)
		}
	}
	prompt := p.generator.prompts[0]
	if !strings.Contains(prompt, BuildContext(answer.Sources)) {
		t.Fatalf("prompt does not contain retrieved context")
	}
}

func TestAnswerWithoutNamedAthleteSearchesEverything(t *testing.T) {
	p := newPipeline(t, &sourceFake{docs: boxerPages})
	if _, err := p.ingest.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	answer, err := p.query.Answer(context.Background(), "Tell me about boxing", 20)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Filter.IsSet() {
		t.Fatalf("expected no filter, got %+v", answer.Filter)
	}
	seen := map[string]bool{}
	for _, source := range answer.Sources {
		seen[source.Entity] = true
	}
	if !seen["Manny Pacquiao"] || !seen["Nonito Donaire"] {
		t.Fatalf("expected sources from both athletes, got %v", seen)
	}
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	p := newPipeline(t, &sourceFake{docs: boxerPages})
	if _, err := p.query.Answer(context.Background(), "   ", 0); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(p.embedder.queries) != 0 {
		t.Fatalf("expected no embedding for blank question")
	}
}

func TestAnswerBeforeAnyRebuildIsNotReady(t *testing.T) {
	p := newPipeline(t, &sourceFake{docs: boxerPages})
	_, err := p.query.Answer(context.Background(), "Who is Manny Pacquiao?", 0)
	if !domain.IsKind(err, domain.ErrCollectionNotReady) {
		t.Fatalf("expected ErrCollectionNotReady, got %v", err)
	}
	if len(p.generator.prompts) != 0 {
		t.Fatalf("generator must not be called when collection is not ready")
	}
}

func TestAnswerAfterFailedRebuildIsNotReady(t *testing.T) {
	p := newPipeline(t, &sourceFake{errs: map[string]error{
		"Manny Pacquiao": errors.New("offline"),
		"Nonito Donaire": errors.New("offline"),
	}})
	if _, err := p.ingest.Rebuild(context.Background()); err == nil {
		t.Fatalf("expected rebuild to fail")
	}
	_, err := p.query.Answer(context.Background(), "Who is Manny Pacquiao?", 0)
	if !domain.IsKind(err, domain.ErrCollectionNotReady) {
		t.Fatalf("expected ErrCollectionNotReady, got %v", err)
	}
}

func TestAnswerSurfacesGenerationFailureWithSources(t *testing.T) {
	p := newPipeline(t, &sourceFake{docs: boxerPages})
	if _, err := p.ingest.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	p.generator.err = errors.New("quota exceeded")

	answer, err := p.query.Answer(context.Background(), "Who is Nonito Donaire?", 0)
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if answer == nil || len(answer.Sources) == 0 || answer.Filter.Entity != "Nonito Donaire" {
		t.Fatalf("expected sources and filter on failed answer, got %+v", answer)
	}
}
