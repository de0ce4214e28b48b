package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/resilience"
)

func TestGeneratorSendsPromptVerbatim(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  eight divisions \n"}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "llama3", "all-minilm", WithTemperature(0.3)))
	out, err := gen.Complete(context.Background(), "Context:\nchunk text\n\nQuestion: q?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "eight divisions" {
		t.Fatalf("unexpected answer %q", out)
	}
	if payload["prompt"] != "Context:\nchunk text\n\nQuestion: q?" || payload["model"] != "llama3" || payload["stream"] != false {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["options"].(map[string]any)["temperature"].(float64) != 0.3 {
		t.Fatalf("unexpected options %v", payload["options"])
	}
}

func TestEmbedReturnsOneVectorPerInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Model != "all-minilm" {
			t.Errorf("unexpected model %q", payload.Model)
		}
		vectors := make([][]float32, len(payload.Input))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "llama3", "all-minilm"))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 || vectors[2][0] != 2 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
	query, err := embedder.EmbedQuery(context.Background(), "q")
	if err != nil || len(query) != 3 {
		t.Fatalf("EmbedQuery() = %v, %v", query, err)
	}
}

func TestEmbedRejectsShortResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer server.Close()

	if _, err := NewEmbedder(New(server.URL, "g", "e")).Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	embedder := NewEmbedder(New(server.URL, "gen", "embed", WithExecutor(executor)))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}
