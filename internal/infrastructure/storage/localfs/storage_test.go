package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

func TestSaveOpenExists(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "manny_pacquiao.txt"); err != nil || ok {
		t.Fatalf("Exists() before save = %v, %v", ok, err)
	}
	if err := s.Save(ctx, "manny_pacquiao.txt", strings.NewReader("Pac-Man")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ok, err := s.Exists(ctx, "manny_pacquiao.txt"); err != nil || !ok {
		t.Fatalf("Exists() after save = %v, %v", ok, err)
	}

	r, err := s.Open(ctx, "manny_pacquiao.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	raw, _ := io.ReadAll(r)
	if string(raw) != "Pac-Man" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Open(context.Background(), "nobody.txt"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"../etc/passwd", "/abs.txt", ""} {
		if _, err := s.Exists(context.Background(), key); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %q, got %v", key, err)
		}
	}
}
