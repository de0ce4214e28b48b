package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/core/ports"
)

// LedgerReadiness treats a collection as servable only when its latest recorded rebuild
// finished successfully.
type LedgerReadiness struct {
	runs       ports.IngestionRunStore
	collection string
}

func NewLedgerReadiness(runs ports.IngestionRunStore, collection string) *LedgerReadiness {
	return &LedgerReadiness{runs: runs, collection: collection}
}

func (r *LedgerReadiness) Ready(ctx context.Context) error {
	run, err := r.LatestRun(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return domain.WrapError(domain.ErrCollectionNotReady, "check readiness", fmt.Errorf("no rebuild recorded for %s", r.collection))
		}
		return fmt.Errorf("check readiness: %w", err)
	}
	if run.Status != domain.RunStatusReady {
		return domain.WrapError(
			domain.ErrCollectionNotReady,
			"check readiness",
			fmt.Errorf("latest rebuild %s of %s is %s", run.ID, r.collection, run.Status),
		)
	}
	return nil
}

func (r *LedgerReadiness) LatestRun(ctx context.Context) (*domain.IngestionRun, error) {
	return r.runs.LatestRun(ctx, r.collection)
}
