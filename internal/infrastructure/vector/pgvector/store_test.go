package pgvector

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/athlete-rag/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return New(db), mock, func() { _ = db.Close() }
}

func TestTableName(t *testing.T) {
	if got := TableName("Filipino-Boxers v2"); got != "rag_filipino_boxers_v2" {
		t.Fatalf("TableName() = %q", got)
	}
}

func TestCreateCollectionRegistersAndCreatesTable(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vector_collections").
		WithArgs("filipinoboxers", "rag_filipinoboxers", 384, "Cosine").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "rag_filipinoboxers"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.CreateCollection(context.Background(), domain.Collection{Name: "filipinoboxers", Dimension: 384, Distance: domain.DistanceCosine})
	if err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateCollectionFailsWhenRegistered(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vector_collections").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.CreateCollection(context.Background(), domain.Collection{Name: "boxers", Dimension: 3, Distance: domain.DistanceCosine})
	if err == nil {
		t.Fatalf("expected error for existing collection")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateCollectionRejectsUnknownDistance(t *testing.T) {
	store, _, done := newStoreWithMock(t)
	defer done()

	err := store.CreateCollection(context.Background(), domain.Collection{Name: "boxers", Dimension: 3, Distance: "Manhattan"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteCollectionDropsTable(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM vector_collections").WithArgs("boxers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "rag_boxers"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := store.DeleteCollection(context.Background(), "boxers"); err != nil {
		t.Fatalf("DeleteCollection() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertWritesEveryChunk(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	chunks := []domain.EmbeddedChunk{
		{Chunk: domain.Chunk{Text: "a", Entity: "Manny Pacquiao", SourceID: "s", Sequence: 0}, Vector: []float32{1, 0}},
		{Chunk: domain.Chunk{Text: "b", Entity: "Manny Pacquiao", SourceID: "s", Sequence: 1}, Vector: []float32{0, 1}},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "rag_boxers"`))
	for _, c := range chunks {
		prep.ExpectExec().
			WithArgs(c.Chunk.PointID().String(), c.Chunk.Entity, c.Chunk.SourceID, c.Chunk.Sequence, c.Chunk.Text, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := store.Upsert(context.Background(), "boxers", chunks); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchFiltersByEntityAndConvertsCosineDistance(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT distance FROM vector_collections").
		WithArgs("boxers").
		WillReturnRows(sqlmock.NewRows([]string{"distance"}).AddRow("Cosine"))
	mock.ExpectQuery(regexp.QuoteMeta(`embedding <=> $1 AS d FROM "rag_boxers" WHERE entity = $3 ORDER BY d LIMIT $2`)).
		WithArgs(sqlmock.AnyArg(), 8, "Manny Pacquiao").
		WillReturnRows(sqlmock.NewRows([]string{"text", "entity", "source_id", "sequence_index", "d"}).
			AddRow("eight divisions", "Manny Pacquiao", "s", 2, 0.25))

	result, err := store.Search(context.Background(), "boxers", []float32{1, 0}, 8, domain.RetrievalFilter{Entity: "Manny Pacquiao"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result) != 1 || result[0].Score != 0.75 || result[0].Sequence != 2 || result[0].Entity != "Manny Pacquiao" {
		t.Fatalf("unexpected result %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchMissingCollectionIsNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT distance FROM vector_collections").WithArgs("gone").WillReturnError(sql.ErrNoRows)

	_, err := store.Search(context.Background(), "gone", []float32{1}, 8, domain.RetrievalFilter{})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollectionExists(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").WithArgs("boxers").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.CollectionExists(context.Background(), "boxers")
	if err != nil || !exists {
		t.Fatalf("CollectionExists() = %v, %v", exists, err)
	}
}
