package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pharmaguard-client/internal/domain"
	"github.com/pharmaguard-client/pkg/classification"
)

// ReportFileName is the name given to a downloaded clinical report.
const ReportFileName = "clinical_report.pdf"

// ResultItem is one received result with its classification and view state.
type ResultItem struct {
	Index      int                       `json:"index"`
	Result     domain.AnalysisResult     `json:"result"`
	Annotation classification.Annotation `json:"annotation"`
	Expanded   bool                      `json:"expanded"`
}

// ResultSet holds the latest classified result set and one expand flag per
// result. Results keep the order in which the service returned them.
type ResultSet struct {
	mu       sync.RWMutex
	results  []domain.AnalysisResult
	notes    []classification.Annotation
	expanded []bool
}

// NewResultSet creates an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{}
}

// Publish replaces the held results and resets every expand flag to false.
func (s *ResultSet) Publish(results []domain.AnalysisResult) {
	held := make([]domain.AnalysisResult, len(results))
	copy(held, results)
	notes := make([]classification.Annotation, len(held))
	for i := range held {
		notes[i] = classification.Classify(&held[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = held
	s.notes = notes
	s.expanded = make([]bool, len(held))
}

// Toggle flips the expand flag of index and returns the new value. Indexes
// outside the set are ignored and report false.
func (s *ResultSet) Toggle(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.expanded) {
		return false
	}
	s.expanded[index] = !s.expanded[index]
	return s.expanded[index]
}

// Expanded reports the expand flag of index.
func (s *ResultSet) Expanded(index int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.expanded) {
		return false
	}
	return s.expanded[index]
}

// Len returns the number of held results.
func (s *ResultSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Results returns a copy of the held results.
func (s *ResultSet) Results() []domain.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnalysisResult, len(s.results))
	copy(out, s.results)
	return out
}

// Result returns the result at index.
func (s *ResultSet) Result(index int) (domain.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.results) {
		return domain.AnalysisResult{}, false
	}
	return s.results[index], true
}

// Items returns the classified results with their view state.
func (s *ResultSet) Items() []ResultItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ResultItem, len(s.results))
	for i := range s.results {
		items[i] = ResultItem{
			Index:      i,
			Result:     s.results[i],
			Annotation: s.notes[i],
			Expanded:   s.expanded[i],
		}
	}
	return items
}

// Stats aggregates the held results.
func (s *ResultSet) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AggregateStats(s.results)
}

// RenderReport asks the report service for a document covering every held
// result. Failures come back as *domain.ReportError and leave the set as is.
func (s *ResultSet) RenderReport(ctx context.Context, reports domain.ReportService) ([]byte, error) {
	results := s.Results()
	if len(results) == 0 {
		return nil, &domain.ReportError{Err: fmt.Errorf("no results to report")}
	}
	doc, err := reports.GenerateReport(ctx, results)
	if err != nil {
		return nil, &domain.ReportError{Err: err}
	}
	return doc, nil
}

// DownloadReport renders the report and writes it to dir as
// clinical_report.pdf, returning the written path.
func (s *ResultSet) DownloadReport(ctx context.Context, reports domain.ReportService, dir string) (string, error) {
	doc, err := s.RenderReport(ctx, reports)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ReportFileName)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", &domain.ReportError{Err: fmt.Errorf("failed to write report: %w", err)}
	}
	return path, nil
}
