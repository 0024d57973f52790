// Package domain contains the core entities exchanged with the pharmacogenomic
// analysis service: uploaded variant files, per-drug analysis results and the
// decision traces that support a phenotype call.
//
// Results arrive from an external service and may be partially populated or
// carry fields of an unexpected JSON type. Decoding is therefore lenient: a
// malformed known field is treated as absent, and the original bytes of every
// result are retained so re-encoding never loses data.
package domain

import (
	"bytes"
	"encoding/json"
)

// MaxUploadBytes is the largest variant file accepted for submission (5 MiB).
const MaxUploadBytes int64 = 5 * 1024 * 1024

// VCFExtension is the required (case-sensitive) suffix of an uploaded file name.
const VCFExtension = ".vcf"

// PhenotypeCode is the metabolizer phenotype reported for the primary gene.
type PhenotypeCode string

const (
	PhenotypePoor         PhenotypeCode = "PM"
	PhenotypeIntermediate PhenotypeCode = "IM"
	PhenotypeNormal       PhenotypeCode = "NM"
	PhenotypeRapid        PhenotypeCode = "RM"
	PhenotypeUltraRapid   PhenotypeCode = "UM"
)

// RiskLabel is the clinical risk classification of a drug for a genotype.
type RiskLabel string

const (
	RiskSafe         RiskLabel = "Safe"
	RiskAdjustDosage RiskLabel = "Adjust Dosage"
	RiskToxic        RiskLabel = "Toxic"
	RiskIneffective  RiskLabel = "Ineffective"
)

// UploadedFile is a variant file staged for submission.
type UploadedFile struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Content []byte `json:"-"`
}

// AlleleDetail is one allele's contribution to the activity score.
type AlleleDetail struct {
	Allele   string  `json:"allele"`
	Function string  `json:"function"`
	Score    float64 `json:"score"`
}

// DecisionTrace is the evidence behind a phenotype determination.
type DecisionTrace struct {
	ActivityScore float64        `json:"activity_score"`
	AlleleDetails []AlleleDetail `json:"allele_details"`
	PhenotypeRule string         `json:"phenotype_rule"`
	Method        string         `json:"method,omitempty"`
}

// PharmacogenomicProfile summarizes the genotype of the gene driving a drug's response.
type PharmacogenomicProfile struct {
	PrimaryGene   string         `json:"primary_gene,omitempty"`
	Diplotype     string         `json:"diplotype,omitempty"`
	ActivityScore *float64       `json:"activity_score,omitempty"`
	Phenotype     PhenotypeCode  `json:"phenotype,omitempty"`
	DecisionTrace *DecisionTrace `json:"decision_trace,omitempty"`
}

// UnmarshalJSON decodes each field independently so one malformed field does
// not discard the others.
func (p *PharmacogenomicProfile) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	if !ok {
		*p = PharmacogenomicProfile{}
		return nil
	}
	*p = PharmacogenomicProfile{}
	p.PrimaryGene, _ = lenient[string](fields, "primary_gene")
	p.Diplotype, _ = lenient[string](fields, "diplotype")
	if score, ok := lenient[float64](fields, "activity_score"); ok {
		p.ActivityScore = &score
	}
	if code, ok := lenient[string](fields, "phenotype"); ok {
		p.Phenotype = PhenotypeCode(code)
	}
	if trace, ok := lenient[DecisionTrace](fields, "decision_trace"); ok {
		p.DecisionTrace = &trace
	}
	return nil
}

// UnmarshalJSON decodes a decision trace leniently.
func (d *DecisionTrace) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	if !ok {
		return errNotObject
	}
	*d = DecisionTrace{}
	d.ActivityScore, _ = lenient[float64](fields, "activity_score")
	d.PhenotypeRule, _ = lenient[string](fields, "phenotype_rule")
	d.Method, _ = lenient[string](fields, "method")
	var rows []json.RawMessage
	if raw, ok := fields["allele_details"]; ok && json.Unmarshal(raw, &rows) == nil {
		for _, row := range rows {
			cols, ok := objectFields(row)
			if !ok {
				continue
			}
			var detail AlleleDetail
			detail.Allele, _ = lenient[string](cols, "allele")
			detail.Function, _ = lenient[string](cols, "function")
			detail.Score, _ = lenient[float64](cols, "score")
			d.AlleleDetails = append(d.AlleleDetails, detail)
		}
	}
	return nil
}

// RiskAssessment is the service's risk call for one drug.
type RiskAssessment struct {
	RiskLabel       RiskLabel `json:"risk_label,omitempty"`
	Severity        string    `json:"severity,omitempty"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
}

// UnmarshalJSON decodes a risk assessment leniently.
func (r *RiskAssessment) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	*r = RiskAssessment{}
	if !ok {
		return nil
	}
	if label, ok := lenient[string](fields, "risk_label"); ok {
		r.RiskLabel = RiskLabel(label)
	}
	r.Severity, _ = lenient[string](fields, "severity")
	if c, ok := lenient[float64](fields, "confidence_score"); ok {
		r.ConfidenceScore = &c
	}
	return nil
}

// ClinicalRecommendation carries the recommendation text.
type ClinicalRecommendation struct {
	Text string `json:"text,omitempty"`
}

// UnmarshalJSON decodes a recommendation leniently.
func (c *ClinicalRecommendation) UnmarshalJSON(data []byte) error {
	fields, ok := objectFields(data)
	*c = ClinicalRecommendation{}
	if ok {
		c.Text, _ = lenient[string](fields, "text")
	}
	return nil
}

// AnalysisResult is the service's answer for one requested drug.
type AnalysisResult struct {
	Drug                    string                  `json:"drug"`
	PatientID               string                  `json:"patient_id,omitempty"`
	Timestamp               string                  `json:"timestamp,omitempty"`
	Profile                 *PharmacogenomicProfile `json:"pharmacogenomic_profile,omitempty"`
	Risk                    *RiskAssessment         `json:"risk_assessment,omitempty"`
	Recommendation          *ClinicalRecommendation `json:"clinical_recommendation,omitempty"`
	Explanation             json.RawMessage         `json:"llm_generated_explanation,omitempty"`
	DrugLevelInterpretation string                  `json:"drug_level_interpretation,omitempty"`

	raw json.RawMessage
}

type analysisResultFields AnalysisResult

// UnmarshalJSON keeps the original bytes and decodes known fields leniently.
// Non-object input yields an empty result rather than an error.
func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	*a = AnalysisResult{}
	fields, ok := objectFields(data)
	if !ok {
		return nil
	}
	a.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	a.Drug, _ = lenient[string](fields, "drug")
	a.PatientID, _ = lenient[string](fields, "patient_id")
	a.Timestamp, _ = lenient[string](fields, "timestamp")
	a.DrugLevelInterpretation, _ = lenient[string](fields, "drug_level_interpretation")
	if p, ok := lenient[PharmacogenomicProfile](fields, "pharmacogenomic_profile"); ok && isObject(fields["pharmacogenomic_profile"]) {
		a.Profile = &p
	}
	if r, ok := lenient[RiskAssessment](fields, "risk_assessment"); ok && isObject(fields["risk_assessment"]) {
		a.Risk = &r
	}
	if c, ok := lenient[ClinicalRecommendation](fields, "clinical_recommendation"); ok && isObject(fields["clinical_recommendation"]) {
		a.Recommendation = &c
	}
	if raw, ok := fields["llm_generated_explanation"]; ok && !isNull(raw) {
		a.Explanation = append(json.RawMessage(nil), raw...)
	}
	return nil
}

// MarshalJSON re-emits the bytes received from the service when available.
func (a AnalysisResult) MarshalJSON() ([]byte, error) {
	if len(a.raw) > 0 {
		return a.raw, nil
	}
	return json.Marshal(analysisResultFields(a))
}

// RiskLabelValue returns the risk label or "" when no assessment is present.
func (a *AnalysisResult) RiskLabelValue() RiskLabel {
	if a == nil || a.Risk == nil {
		return ""
	}
	return a.Risk.RiskLabel
}

// SeverityValue returns the raw severity or "".
func (a *AnalysisResult) SeverityValue() string {
	if a == nil || a.Risk == nil {
		return ""
	}
	return a.Risk.Severity
}

// PhenotypeValue returns the phenotype code or "".
func (a *AnalysisResult) PhenotypeValue() PhenotypeCode {
	if a == nil || a.Profile == nil {
		return ""
	}
	return a.Profile.Phenotype
}

// ExplanationSummary returns the "summary" member of the explanation object.
func (a *AnalysisResult) ExplanationSummary() string {
	if a == nil || len(a.Explanation) == 0 {
		return ""
	}
	fields, ok := objectFields(a.Explanation)
	if !ok {
		return ""
	}
	summary, _ := lenient[string](fields, "summary")
	return summary
}

// NormalizeResults turns an analysis payload into a result list. A bare
// object becomes a one-element list; null or an empty body becomes an empty
// list.
func NormalizeResults(payload []byte) ([]AnalysisResult, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || isNull(trimmed) {
		return []AnalysisResult{}, nil
	}
	if trimmed[0] == '[' {
		var results []AnalysisResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, err
		}
		if results == nil {
			results = []AnalysisResult{}
		}
		return results, nil
	}
	var single AnalysisResult
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []AnalysisResult{single}, nil
}
