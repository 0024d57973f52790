package external

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
)

// AnalysisPath is the analysis endpoint relative to the service base URL.
const AnalysisPath = "/analyze/"

// AnalysisClient submits variant files to the pharmacogenomic analysis
// service as multipart form data.
type AnalysisClient struct {
	*serviceClient
}

// NewAnalysisClient creates a new analysis service client
func NewAnalysisClient(config domain.ServiceConfig, logger *logrus.Logger) *AnalysisClient {
	return &AnalysisClient{
		serviceClient: newServiceClient("analysis service", config, DefaultCircuitBreakerConfig(), logger),
	}
}

// Analyze posts the file under the form field "file" and the comma-joined
// drug list under "drug". The raw body of a 2xx answer is returned as is.
func (c *AnalysisClient) Analyze(ctx context.Context, file domain.UploadedFile, drugs string) ([]byte, error) {
	body, contentType, err := encodeAnalysisForm(file, drugs)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, AnalysisPath, contentType, "application/json", body)
}

func encodeAnalysisForm(file domain.UploadedFile, drugs string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.WriteField("drug", drugs); err != nil {
		return nil, "", fmt.Errorf("failed to write drug field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
