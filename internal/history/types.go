// Package history records completed analysis submissions so they can be
// listed and exported later.
package history

import (
	"context"
	"io"
	"time"

	"github.com/pharmaguard-client/internal/domain"
)

// Store defines the interface for submission history storage.
type Store interface {
	domain.HistoryRecorder

	// Get returns the record with id, or nil when there is none.
	Get(ctx context.Context, id string) (*domain.SubmissionRecord, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.SubmissionRecord, error)

	Count(ctx context.Context) (int64, error)

	Delete(ctx context.Context, id string) error

	// ExportJSON writes every record to writer as an indented HistoryExport.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON records every entry of a HistoryExport whose id is not
	// already stored.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// HistoryExport represents the JSON export format.
type HistoryExport struct {
	Version    string                     `json:"version"`
	ExportedAt time.Time                  `json:"exported_at"`
	Count      int                        `json:"count"`
	Records    []*domain.SubmissionRecord `json:"records"`
}

// ExportVersion is written into every HistoryExport.
const ExportVersion = "1.0"

// maxExportLimit is the maximum number of records exported at once.
const maxExportLimit = 1000000

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func writeExport(ctx context.Context, store Store, writer io.Writer) error {
	all, err := store.List(ctx, maxExportLimit, 0)
	if err != nil {
		return err
	}
	if all == nil {
		all = []*domain.SubmissionRecord{}
	}
	return encodeIndented(writer, &HistoryExport{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Records:    all,
	})
}

func readExport(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	export, err := decodeExport(reader)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range export.Records {
		if rec == nil || rec.ID == "" {
			skipped++
			continue
		}
		existing, err := store.Get(ctx, rec.ID)
		if err != nil {
			return imported, skipped, err
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := store.Record(ctx, rec); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}
