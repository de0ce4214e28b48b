package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

func TestRequestCodecRoundTripsFields(t *testing.T) {
	in := domain.RebuildRequest{ID: "req-1", Collection: "filipinoboxers", RequestedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	payload, err := encodeRequest(in)
	if err != nil {
		t.Fatalf("encodeRequest() error = %v", err)
	}
	out, err := decodeRequest(payload)
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if out.ID != in.ID || out.Collection != in.Collection || !out.RequestedAt.Equal(in.RequestedAt) {
		t.Fatalf("unexpected request %+v", out)
	}
}

func TestDecodeRequestRejectsGarbage(t *testing.T) {
	if _, err := decodeRequest([]byte("doc-123")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if _, err := decodeRequest([]byte(`{"collection":"c"}`)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !c.Retryable {
		t.Fatalf("closed connection should be retryable")
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("cancellation must not be retried or recorded")
	}
	if c := classifyNATSError(errors.New("bad subject")); c.Retryable {
		t.Fatalf("unknown errors should not be retried")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(errors.New("permanent")); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error marked temporary")
	}
}
