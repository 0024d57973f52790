package history

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-client/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(t *testing.T, id string, createdAt time.Time) *domain.SubmissionRecord {
	t.Helper()
	results, err := domain.NormalizeResults([]byte(`[
		{"drug":"CODEINE","patient_id":"P1","risk_assessment":{"risk_label":"Toxic","severity":"high"},"vendor_field":{"x":1}},
		{"drug":"WARFARIN","risk_assessment":{"risk_label":"Safe"}}
	]`))
	require.NoError(t, err)
	return &domain.SubmissionRecord{
		ID:        id,
		FileName:  "patient.vcf",
		FileSize:  2048,
		Drugs:     []string{"CODEINE", "WARFARIN"},
		Total:     2,
		Safe:      1,
		HighRisk:  1,
		Results:   results,
		CreatedAt: createdAt,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	defer store.Close()
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	rec := sampleRecord(t, "sub-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, store.Record(ctx, rec))

	got, err := store.Get(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "patient.vcf", got.FileName)
	assert.Equal(t, int64(2048), got.FileSize)
	assert.Equal(t, []string{"CODEINE", "WARFARIN"}, got.Drugs)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.HighRisk)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Results, 2)

	original, err := json.Marshal(rec.Results)
	require.NoError(t, err)
	stored, err := json.Marshal(got.Results)
	require.NoError(t, err)
	assert.JSONEq(t, string(original), string(stored), "results keep unknown fields")
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)

	got, err := store.Get(context.Background(), "nope")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_RecordRequiresID(t *testing.T) {
	store := createTestStore(t)
	assert.Error(t, store.Record(context.Background(), &domain.SubmissionRecord{FileName: "a.vcf"}))
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, sampleRecord(t, "dup", time.Now())))

	assert.Error(t, store.Record(ctx, sampleRecord(t, "dup", time.Now())))
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, sampleRecord(t, id, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, sampleRecord(t, "gone", time.Now())))

	require.NoError(t, store.Delete(ctx, "gone"))

	got, err := store.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_EmptyResultsAndDrugs(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, &domain.SubmissionRecord{ID: "empty", FileName: "a.vcf"}))

	got, err := store.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got.Drugs)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt defaults to now")
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, source.Record(ctx, sampleRecord(t, "one", time.Now().Add(-time.Hour))))
	require.NoError(t, source.Record(ctx, sampleRecord(t, "two", time.Now())))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	var export HistoryExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Contains(t, buf.String(), "\n  \"records\"", "export is indented")

	target := createTestStore(t)
	require.NoError(t, target.Record(ctx, sampleRecord(t, "one", time.Now())))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportEmpty(t *testing.T) {
	store := createTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))

	var export map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, []interface{}{}, export["records"])
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))

	assert.Error(t, err)
}
