package domain

import (
	"context"
)

// AnalysisService submits a variant file and a comma-joined drug list to the
// analysis backend and returns the raw response payload.
type AnalysisService interface {
	Analyze(ctx context.Context, file UploadedFile, drugs string) ([]byte, error)
}

// ReportService renders a clinical report document for a set of results.
type ReportService interface {
	GenerateReport(ctx context.Context, results []AnalysisResult) ([]byte, error)
}

// Notifier shows a short transient message to the user.
type Notifier interface {
	Show(message string)
}

// Clipboard receives text copied by the user.
type Clipboard interface {
	WriteText(text string) error
}

// HistoryRecorder persists completed submissions.
type HistoryRecorder interface {
	Record(ctx context.Context, record *SubmissionRecord) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetAnalysisConfig() *ServiceConfig
	GetReportConfig() *ServiceConfig
	GetServerConfig() *ServerConfig
	Validate() error
}
