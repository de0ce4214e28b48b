package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
	"github.com/kirillkom/athlete-rag/internal/infrastructure/repository/postgres"
)

const vectorSchemaLockID int64 = 2026101502

// Store keeps each collection in its own table and registers its dimension and metric
// in vector_collections.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS vector_collections (
	name TEXT PRIMARY KEY,
	table_name TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	distance TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	return postgres.WithSchemaLock(ctx, s.db, vectorSchemaLockID, ddl)
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM vector_collections WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	return exists, nil
}

func (s *Store) CreateCollection(ctx context.Context, collection domain.Collection) error {
	if _, err := operatorFor(collection.Distance); err != nil {
		return err
	}
	table := TableName(collection.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create collection tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
INSERT INTO vector_collections (name, table_name, dimension, distance)
VALUES ($1,$2,$3,$4)
ON CONFLICT (name) DO NOTHING
`, collection.Name, table, collection.Dimension, string(collection.Distance))
	if err != nil {
		return fmt.Errorf("register collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("collection %s already exists", collection.Name)
	}

	quoted := pgx.Identifier{table}.Sanitize()
	ddl := fmt.Sprintf(`
CREATE TABLE %s (
	id UUID PRIMARY KEY,
	entity TEXT NOT NULL,
	source_id TEXT NOT NULL,
	sequence_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	embedding vector(%d) NOT NULL
);
CREATE INDEX ON %s (entity);
`, quoted, collection.Dimension, quoted)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create collection table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create collection: %w", err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete collection tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_collections WHERE name = $1`, name); err != nil {
		return fmt.Errorf("unregister collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{TableName(name)}.Sanitize()); err != nil {
		return fmt.Errorf("drop collection table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete collection: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection string, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
INSERT INTO %s (id, entity, source_id, sequence_index, text, embedding)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE
SET entity = EXCLUDED.entity, source_id = EXCLUDED.source_id,
	sequence_index = EXCLUDED.sequence_index, text = EXCLUDED.text, embedding = EXCLUDED.embedding
`, pgx.Identifier{TableName(collection)}.Sanitize()))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, ec := range chunks {
		_, err := stmt.ExecContext(ctx,
			ec.Chunk.PointID().String(), ec.Chunk.Entity, ec.Chunk.SourceID, ec.Chunk.Sequence, ec.Chunk.Text,
			pgv.NewVector(ec.Vector),
		)
		if err != nil {
			return fmt.Errorf("upsert chunk %s#%d: %w", ec.Chunk.SourceID, ec.Chunk.Sequence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Search orders by the collection's distance operator. Scores follow the metric:
// cosine similarity, inner product, or negated euclidean distance, so higher is closer.
func (s *Store) Search(
	ctx context.Context,
	collection string,
	queryVector []float32,
	limit int,
	filter domain.RetrievalFilter,
) (domain.RetrievalResult, error) {
	distance, err := s.distance(ctx, collection)
	if err != nil {
		return nil, err
	}
	op, err := operatorFor(distance)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT text, entity, source_id, sequence_index, embedding %s $1 AS d FROM %s", op, pgx.Identifier{TableName(collection)}.Sanitize())
	args := []any{pgv.NewVector(queryVector), limit}
	if filter.IsSet() {
		b.WriteString(" WHERE entity = $3")
		args = append(args, filter.Entity)
	}
	b.WriteString(" ORDER BY d LIMIT $2")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(domain.RetrievalResult, 0, limit)
	for rows.Next() {
		var sc domain.ScoredChunk
		var d float64
		if err := rows.Scan(&sc.Text, &sc.Entity, &sc.SourceID, &sc.Sequence, &d); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		sc.Score = scoreFor(distance, d)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.distance(ctx, collection); err != nil {
		return 0, err
	}
	var n int
	query := "SELECT count(*) FROM " + pgx.Identifier{TableName(collection)}.Sanitize()
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collection, err)
	}
	return n, nil
}

func (s *Store) distance(ctx context.Context, collection string) (domain.Distance, error) {
	var distance string
	err := s.db.QueryRowContext(ctx, `SELECT distance FROM vector_collections WHERE name = $1`, collection).Scan(&distance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrNotFound, "lookup collection", fmt.Errorf("collection=%s", collection))
		}
		return "", fmt.Errorf("lookup collection %s: %w", collection, err)
	}
	return domain.Distance(distance), nil
}

// TableName maps a collection name onto a table name made of [a-z0-9_].
func TableName(collection string) string {
	var b strings.Builder
	b.WriteString("rag_")
	for _, r := range strings.ToLower(collection) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func operatorFor(distance domain.Distance) (string, error) {
	switch distance {
	case domain.DistanceCosine:
		return "<=>", nil
	case domain.DistanceDot:
		return "<#>", nil
	case domain.DistanceEuclid:
		return "<->", nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "vector operator", fmt.Errorf("unsupported distance %q", distance))
	}
}

func scoreFor(distance domain.Distance, d float64) float64 {
	switch distance {
	case domain.DistanceCosine:
		return 1 - d
	default:
		// <#> returns the negated inner product; <-> a distance.
		return -d
	}
}
