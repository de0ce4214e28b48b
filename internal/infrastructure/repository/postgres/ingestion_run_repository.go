package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

const ingestionRunsLockID int64 = 2026101501

type IngestionRunRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewIngestionRunRepository(db *sql.DB) *IngestionRunRepository {
	return &IngestionRunRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *IngestionRunRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingestion_runs_collection_started ON ingestion_runs(collection, started_at DESC);
`
	return WithSchemaLock(ctx, r.db, ingestionRunsLockID, ddl)
}

func (r *IngestionRunRepository) StartRun(ctx context.Context, run *domain.IngestionRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = r.now()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingestion_runs (id, collection, status, chunk_count, error_message, started_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, run.ID, run.Collection, string(run.Status), run.ChunkCount, run.Error, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert ingestion run: %w", err)
	}
	return nil
}

func (r *IngestionRunRepository) FinishRun(ctx context.Context, id string, status domain.RunStatus, chunkCount int, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE ingestion_runs
SET status = $2, chunk_count = $3, error_message = $4, finished_at = $5
WHERE id = $1
`, id, string(status), chunkCount, errMessage, r.now())
	if err != nil {
		return fmt.Errorf("finish ingestion run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish ingestion run rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "finish ingestion run", fmt.Errorf("run id=%s", id))
	}
	return nil
}

func (r *IngestionRunRepository) LatestRun(ctx context.Context, collection string) (*domain.IngestionRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, collection, status, chunk_count, error_message, started_at, finished_at
FROM ingestion_runs
WHERE collection = $1
ORDER BY started_at DESC
LIMIT 1
`, collection)

	var run domain.IngestionRun
	var status string
	var finishedAt sql.NullTime
	err := row.Scan(&run.ID, &run.Collection, &status, &run.ChunkCount, &run.Error, &run.StartedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "latest ingestion run", fmt.Errorf("collection=%s", collection))
		}
		return nil, fmt.Errorf("scan ingestion run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
