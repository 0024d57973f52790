package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pharmaguard-client/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the history database at dbPath, creating the file and
// schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		drugs TEXT NOT NULL DEFAULT '[]',
		total INTEGER NOT NULL DEFAULT 0,
		safe_count INTEGER NOT NULL DEFAULT 0,
		adjust_count INTEGER NOT NULL DEFAULT 0,
		high_risk_count INTEGER NOT NULL DEFAULT 0,
		results TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const sqliteColumns = `id, file_name, file_size, drugs, total, safe_count,
	adjust_count, high_risk_count, results, created_at`

func scanSQLiteRecord(s scanner) (*domain.SubmissionRecord, error) {
	rec := &domain.SubmissionRecord{}
	var drugs, results string
	err := s.Scan(
		&rec.ID, &rec.FileName, &rec.FileSize, &drugs, &rec.Total, &rec.Safe,
		&rec.Adjust, &rec.HighRisk, &results, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(drugs), &rec.Drugs); err != nil {
		return nil, fmt.Errorf("failed to decode drugs: %w", err)
	}
	if rec.Results, err = decodeResults([]byte(results)); err != nil {
		return nil, err
	}
	return rec, nil
}

// Record implements domain.HistoryRecorder.
func (s *SQLiteStore) Record(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	drugs := rec.Drugs
	if drugs == nil {
		drugs = []string{}
	}
	drugsJSON, err := json.Marshal(drugs)
	if err != nil {
		return fmt.Errorf("failed to encode drugs: %w", err)
	}
	results, err := encodeResults(rec.Results)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.FileName, rec.FileSize, string(drugsJSON), rec.Total, rec.Safe,
		rec.Adjust, rec.HighRisk, string(results), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get returns the record with id, or nil when there is none.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM submissions WHERE id = ?`, id)
	rec, err := scanSQLiteRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns records newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.SubmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM submissions
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.SubmissionRecord
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count)
	return count, err
}

// Delete removes a record by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = ?", id)
	return err
}

// ExportJSON writes every record to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	if err := writeExport(ctx, s, writer); err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	return nil
}

// ImportJSON imports records from a HistoryExport.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return readExport(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
