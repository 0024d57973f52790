package history

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pharmaguard-client/internal/domain"
)

func encodeIndented(writer io.Writer, export *HistoryExport) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func decodeExport(reader io.Reader) (*HistoryExport, error) {
	var export HistoryExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}

func encodeResults(results []domain.AnalysisResult) ([]byte, error) {
	if results == nil {
		results = []domain.AnalysisResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}

func decodeResults(data []byte) ([]domain.AnalysisResult, error) {
	results, err := domain.NormalizeResults(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored results: %w", err)
	}
	return results, nil
}
