package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

type sourceFake struct {
	docs map[string]string
	errs map[string]error
}

func (f *sourceFake) Fetch(_ context.Context, entity string) (domain.Document, error) {
	if err := f.errs[entity]; err != nil {
		return domain.Document{}, err
	}
	text, ok := f.docs[entity]
	if !ok {
		return domain.Document{}, fmt.Errorf("page %q not found", entity)
	}
	return domain.Document{
		Text:     text,
		SourceID: "wiki:" + entity,
		Entity:   "ignored-by-loader",
	}, nil
}

// hashEmbedderFake maps words to fixed buckets so texts sharing words are similar.
type hashEmbedderFake struct {
	dim     int
	err     error
	queries []string
	calls   int
}

func (f *hashEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *hashEmbedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *hashEmbedderFake) vector(text string) []float32 {
	v := make([]float32, f.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[int(h.Sum32()%uint32(f.dim))]++
	}
	v[0] += 0.01
	return v
}

type storedCollection struct {
	meta   domain.Collection
	points map[string]domain.EmbeddedChunk
	order  []string
}

// memoryStoreFake is a cosine-similarity vector store that records every operation.
type memoryStoreFake struct {
	mu          sync.Mutex
	collections map[string]*storedCollection
	ops         []string

	createErr error
	upsertErr error
	searchErr error
}

func newMemoryStoreFake() *memoryStoreFake {
	return &memoryStoreFake{collections: make(map[string]*storedCollection)}
}

func (s *memoryStoreFake) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "exists:"+name)
	_, ok := s.collections[name]
	return ok, nil
}

func (s *memoryStoreFake) CreateCollection(_ context.Context, c domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "create:"+c.Name)
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.collections[c.Name]; ok {
		return errors.New("collection already exists")
	}
	s.collections[c.Name] = &storedCollection{meta: c, points: make(map[string]domain.EmbeddedChunk)}
	return nil
}

func (s *memoryStoreFake) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "delete:"+name)
	delete(s.collections, name)
	return nil
}

func (s *memoryStoreFake) Upsert(_ context.Context, collection string, points []domain.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, fmt.Sprintf("upsert:%s:%d", collection, len(points)))
	if s.upsertErr != nil {
		return s.upsertErr
	}
	c, ok := s.collections[collection]
	if !ok {
		return errors.New("collection missing")
	}
	for _, p := range points {
		id := fmt.Sprintf("%s#%d", p.Chunk.SourceID, p.Chunk.Sequence)
		if _, exists := c.points[id]; !exists {
			c.order = append(c.order, id)
		}
		c.points[id] = p
	}
	return nil
}

func (s *memoryStoreFake) Search(_ context.Context, collection string, vector []float32, limit int, filter domain.RetrievalFilter) (domain.RetrievalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	var out domain.RetrievalResult
	for _, id := range c.order {
		p := c.points[id]
		if filter.IsSet() && p.Chunk.Entity != filter.Entity {
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: p.Chunk, Score: cosine(vector, p.Vector)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStoreFake) Count(_ context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}
	return len(c.points), nil
}

func (s *memoryStoreFake) texts(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collections[collection]
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.points[id].Chunk.Text)
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type generatorFake struct {
	prompts []string
	err     error
}

func (f *generatorFake) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return "generated answer", nil
}

type runStoreFake struct {
	runs      map[string]*domain.IngestionRun
	order     []string
	startErr  error
	latestErr error
}

func newRunStoreFake() *runStoreFake {
	return &runStoreFake{runs: make(map[string]*domain.IngestionRun)}
}

func (f *runStoreFake) EnsureSchema(context.Context) error { return nil }

func (f *runStoreFake) StartRun(_ context.Context, run *domain.IngestionRun) error {
	if f.startErr != nil {
		return f.startErr
	}
	copyRun := *run
	f.runs[run.ID] = &copyRun
	f.order = append(f.order, run.ID)
	return nil
}

func (f *runStoreFake) FinishRun(_ context.Context, id string, status domain.RunStatus, chunkCount int, errMessage string) error {
	run, ok := f.runs[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "finish run", fmt.Errorf("id=%s", id))
	}
	run.Status = status
	run.ChunkCount = chunkCount
	run.Error = errMessage
	return nil
}

func (f *runStoreFake) LatestRun(_ context.Context, collection string) (*domain.IngestionRun, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	for i := len(f.order) - 1; i >= 0; i-- {
		run := f.runs[f.order[i]]
		if run.Collection == collection {
			copyRun := *run
			return &copyRun, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "latest run", fmt.Errorf("collection=%s", collection))
}

type observerFake struct {
	reports []domain.IngestionReport
	errs    []error
}

func (f *observerFake) ObserveIngestion(report domain.IngestionReport, err error) {
	f.reports = append(f.reports, report)
	f.errs = append(f.errs, err)
}
