package hugot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEmbedChecksVectorCount(t *testing.T) {
	e := &Embedder{run: func(texts []string) ([][]float32, error) {
		return [][]float32{{1, 2, 3}}, nil
	}}
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
	v, err := e.EmbedQuery(context.Background(), "a")
	if err != nil || len(v) != 3 {
		t.Fatalf("EmbedQuery() = %v, %v", v, err)
	}
}

func TestEmbedWrapsPipelineError(t *testing.T) {
	boom := errors.New("onnx failure")
	e := &Embedder{run: func([]string) ([][]float32, error) { return nil, boom }}
	if _, err := e.Embed(context.Background(), []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped pipeline error, got %v", err)
	}
}

func TestEmbedHonoursCancelledContext(t *testing.T) {
	called := false
	e := &Embedder{run: func([]string) ([][]float32, error) { called = true; return nil, nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Embed(ctx, []string{"a"}); !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before running pipeline, got %v", err)
	}
}

func TestPrepareModelReusesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "sentence-transformers_all-MiniLM-L6-v2")
	if err := os.MkdirAll(want, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, err := PrepareModel(DefaultModel, dir)
	if err != nil || got != want {
		t.Fatalf("PrepareModel() = %q, %v", got, err)
	}
}
