package service

import (
	"github.com/pharmaguard-client/internal/domain"
)

// Stats summarizes a result set by risk label. Results with an absent or
// unrecognized label count only towards Total.
type Stats struct {
	Total    int `json:"total"`
	Safe     int `json:"safe_count"`
	Adjust   int `json:"adjust_count"`
	HighRisk int `json:"high_risk_count"`
}

// AggregateStats counts results by risk label.
func AggregateStats(results []domain.AnalysisResult) Stats {
	stats := Stats{Total: len(results)}
	for i := range results {
		switch results[i].RiskLabelValue() {
		case domain.RiskSafe:
			stats.Safe++
		case domain.RiskAdjustDosage:
			stats.Adjust++
		case domain.RiskToxic, domain.RiskIneffective:
			stats.HighRisk++
		}
	}
	return stats
}
