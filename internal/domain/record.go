package domain

import (
	"time"
)

// SubmissionRecord is a completed analysis kept in the history store.
type SubmissionRecord struct {
	ID        string           `json:"id"`
	FileName  string           `json:"file_name"`
	FileSize  int64            `json:"file_size"`
	Drugs     []string         `json:"drugs"`
	Total     int              `json:"total"`
	Safe      int              `json:"safe_count"`
	Adjust    int              `json:"adjust_count"`
	HighRisk  int              `json:"high_risk_count"`
	Results   []AnalysisResult `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
}
