package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

// RebuildRequestUseCase hands rebuilds to the worker through the queue.
type RebuildRequestUseCase struct {
	queue      ports.RebuildQueue
	collection string
}

func NewRebuildRequestUseCase(queue ports.RebuildQueue, collection string) *RebuildRequestUseCase {
	return &RebuildRequestUseCase{queue: queue, collection: collection}
}

func (uc *RebuildRequestUseCase) RequestRebuild(ctx context.Context) (domain.RebuildRequest, error) {
	req := domain.RebuildRequest{
		ID:          uuid.NewString(),
		Collection:  uc.collection,
		RequestedAt: time.Now().UTC(),
	}
	if err := uc.queue.PublishRebuildRequested(ctx, req); err != nil {
		return domain.RebuildRequest{}, fmt.Errorf("publish rebuild request: %w", err)
	}
	return req, nil
}
