package classification

import (
	"github.com/pharmaguard-client/internal/domain"
)

// AlleleBar is one row of the allele contribution chart.
type AlleleBar struct {
	domain.AlleleDetail
	WeightPercent float64 `json:"weight_percent"`
}

// TraceAnnotation is the classified view of a decision trace.
type TraceAnnotation struct {
	Activity ActivityBand `json:"activity"`
	Alleles  []AlleleBar  `json:"alleles,omitempty"`
}

// Annotation bundles every classification of one analysis result.
type Annotation struct {
	Phenotype     PhenotypeMeta    `json:"phenotype"`
	PhenotypeCode string           `json:"phenotype_code"`
	Risk          RiskMeta         `json:"risk"`
	RiskLabel     string           `json:"risk_label"`
	Accent        Tier             `json:"accent"`
	Severity      SeverityMeta     `json:"severity"`
	Activity      *ActivityBand    `json:"activity,omitempty"`
	Trace         *TraceAnnotation `json:"trace,omitempty"`
}

// Classify annotates a result. Absent fields fall back to the Unknown
// categories; activity bands are only present when a score was reported.
func Classify(r *domain.AnalysisResult) Annotation {
	phenotype := r.PhenotypeValue()
	label := r.RiskLabelValue()

	a := Annotation{
		Phenotype:     Phenotype(phenotype),
		PhenotypeCode: displayOrUnknown(string(phenotype)),
		Risk:          Risk(label),
		RiskLabel:     displayOrUnknown(string(label)),
		Accent:        RiskAccent(label),
		Severity:      Severity(r.SeverityValue()),
	}

	if r == nil || r.Profile == nil {
		return a
	}
	if r.Profile.ActivityScore != nil {
		band := ActivityScore(*r.Profile.ActivityScore)
		a.Activity = &band
	}
	if trace := r.Profile.DecisionTrace; trace != nil {
		ta := &TraceAnnotation{Activity: ActivityScore(trace.ActivityScore)}
		for _, detail := range trace.AlleleDetails {
			ta.Alleles = append(ta.Alleles, AlleleBar{
				AlleleDetail:  detail,
				WeightPercent: AlleleWeight(detail.Score),
			})
		}
		a.Trace = ta
	}
	return a
}

func displayOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
