package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/lib/pq"

	"github.com/pharmaguard-client/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection. The schema is expected to exist
// already (see MigrationRunner).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens databaseURL and wraps it.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

const postgresColumns = `id, file_name, file_size, drugs, total, safe_count,
	adjust_count, high_risk_count, results, created_at`

func scanPostgresRecord(s scanner) (*domain.SubmissionRecord, error) {
	rec := &domain.SubmissionRecord{}
	var drugs pq.StringArray
	var results []byte
	err := s.Scan(
		&rec.ID, &rec.FileName, &rec.FileSize, &drugs, &rec.Total, &rec.Safe,
		&rec.Adjust, &rec.HighRisk, &results, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Drugs = []string(drugs)
	if rec.Drugs == nil {
		rec.Drugs = []string{}
	}
	if rec.Results, err = decodeResults(results); err != nil {
		return nil, err
	}
	return rec, nil
}

// Record implements domain.HistoryRecorder.
func (s *PostgresStore) Record(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	results, err := encodeResults(rec.Results)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (`+postgresColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID, rec.FileName, rec.FileSize, pq.Array(rec.Drugs), rec.Total, rec.Safe,
		rec.Adjust, rec.HighRisk, string(results), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// Get returns the record with id, or nil when there is none.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postgresColumns+` FROM submissions WHERE id = $1`, id)
	rec, err := scanPostgresRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return rec, nil
}

// List returns records newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.SubmissionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postgresColumns+`
		FROM submissions
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var result []*domain.SubmissionRecord
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// Delete removes a record by id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

// ExportJSON writes every record to writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	if err := writeExport(ctx, s, writer); err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	return nil
}

// ImportJSON imports records from a HistoryExport.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return readExport(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
