package external

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
)

// ReportPath is the report endpoint relative to the service base URL.
const ReportPath = "/report/"

// ReportClient renders clinical PDF reports.
type ReportClient struct {
	*serviceClient
}

// NewReportClient creates a new report service client
func NewReportClient(config domain.ServiceConfig, logger *logrus.Logger) *ReportClient {
	return &ReportClient{
		serviceClient: newServiceClient("report service", config, DefaultCircuitBreakerConfig(), logger),
	}
}

// GenerateReport posts the results as a JSON array and returns the document
// bytes.
func (c *ReportClient) GenerateReport(ctx context.Context, results []domain.AnalysisResult) ([]byte, error) {
	if results == nil {
		results = []domain.AnalysisResult{}
	}
	body, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report request: %w", err)
	}
	return c.post(ctx, ReportPath, "application/json", "application/pdf", body)
}
