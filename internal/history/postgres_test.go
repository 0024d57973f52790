package history

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-client/internal/domain"
)

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

var recordColumns = []string{
	"id", "file_name", "file_size", "drugs", "total", "safe_count",
	"adjust_count", "high_risk_count", "results", "created_at",
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := setupMockStore(t)
	createdAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO submissions").
		WithArgs("sub-1", "patient.vcf", int64(512), sqlmock.AnyArg(), 1, 0, 0, 1, `[{"drug":"CODEINE"}]`, createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	results, err := domain.NormalizeResults([]byte(`[{"drug":"CODEINE"}]`))
	require.NoError(t, err)

	err = store.Record(context.Background(), &domain.SubmissionRecord{
		ID:        "sub-1",
		FileName:  "patient.vcf",
		FileSize:  512,
		Drugs:     []string{"CODEINE"},
		Total:     1,
		HighRisk:  1,
		Results:   results,
		CreatedAt: createdAt,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordError(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec("INSERT INTO submissions").WillReturnError(errors.New("duplicate key"))

	err := store.Record(context.Background(), &domain.SubmissionRecord{ID: "dup"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	createdAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(recordColumns).AddRow(
		"sub-1", "patient.vcf", int64(512), "{CODEINE,WARFARIN}", 2, 1, 1, 0,
		[]byte(`[{"drug":"CODEINE","risk_assessment":{"risk_label":"Safe"}},{"drug":"WARFARIN"}]`), createdAt,
	)
	mock.ExpectQuery(`SELECT (.+) FROM submissions WHERE id = \$1`).WithArgs("sub-1").WillReturnRows(rows)

	rec, err := store.Get(context.Background(), "sub-1")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"CODEINE", "WARFARIN"}, rec.Drugs)
	assert.Equal(t, 1, rec.Adjust)
	require.Len(t, rec.Results, 2)
	assert.Equal(t, domain.RiskSafe, rec.Results[0].RiskLabelValue())
	assert.Equal(t, createdAt, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM submissions WHERE id = \$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	rec, err := store.Get(context.Background(), "nope")

	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(recordColumns).
		AddRow("b", "b.vcf", int64(1), "{CODEINE}", 1, 1, 0, 0, []byte(`[{"drug":"CODEINE"}]`), now).
		AddRow("a", "a.vcf", int64(1), "{}", 0, 0, 0, 0, []byte(`[]`), now.Add(-time.Hour))
	mock.ExpectQuery(`SELECT (.+) FROM submissions ORDER BY created_at DESC`).WithArgs(20, 0).WillReturnRows(rows)

	recs, err := store.List(context.Background(), 20, 0)

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, []string{}, recs[1].Drugs)
	assert.Empty(t, recs[1].Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCorruptResults(t *testing.T) {
	store, mock := setupMockStore(t)
	rows := sqlmock.NewRows(recordColumns).
		AddRow("x", "x.vcf", int64(1), "{}", 0, 0, 0, 0, []byte(`[{"drug":`), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM submissions").WillReturnRows(rows)

	_, err := store.List(context.Background(), 10, 0)

	assert.Error(t, err)
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM submissions`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectExec(`DELETE FROM submissions WHERE id = \$1`).WithArgs("sub-1").WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	require.NoError(t, store.Delete(context.Background(), "sub-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
