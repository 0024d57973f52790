// Package classification maps the partially specified output of the
// pharmacogenomic analysis service onto a small closed set of display
// categories. Every function here is pure and total: absent, null or
// unrecognized input resolves to a defined fallback instead of an error.
package classification

import (
	"math"
	"strings"

	"github.com/pharmaguard-client/internal/domain"
)

// Category is the badge style of a phenotype or risk label.
type Category string

const (
	CategoryDanger    Category = "danger"
	CategoryWarning   Category = "warning"
	CategorySafe      Category = "safe"
	CategoryInfo      Category = "info"
	CategoryPurple    Category = "purple"
	CategorySecondary Category = "secondary"
)

// Tier is a color tier used by accents, meters and score labels.
type Tier string

const (
	TierGreen  Tier = "green"
	TierAmber  Tier = "amber"
	TierOrange Tier = "orange"
	TierRed    Tier = "red"
	TierPurple Tier = "purple"
	TierDanger Tier = "danger"
	TierMuted  Tier = "muted"
)

// PhenotypeMeta is the display metadata for a phenotype code.
type PhenotypeMeta struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Icon     string   `json:"icon"`
}

// RiskMeta is the badge metadata for a risk label.
type RiskMeta struct {
	Category Category `json:"category"`
	Icon     string   `json:"icon"`
}

// SeverityMeta drives the severity meter.
type SeverityMeta struct {
	FillPercent int    `json:"fill_percent"`
	Tier        Tier   `json:"tier"`
	Ticks       int    `json:"ticks"`
	Label       string `json:"label"`
}

// ActivityBand is the banded reading of a numeric activity score.
type ActivityBand struct {
	Tier  Tier   `json:"tier"`
	Label string `json:"label"`
}

// MaxSeverityTicks is the number of tick marks on the severity meter.
const MaxSeverityTicks = 5

var phenotypeTable = map[domain.PhenotypeCode]PhenotypeMeta{
	domain.PhenotypePoor:         {CategoryDanger, "Poor Metabolizer", "⚠"},
	domain.PhenotypeIntermediate: {CategoryWarning, "Intermediate", "⚡"},
	domain.PhenotypeNormal:       {CategorySafe, "Normal Metabolizer", "✓"},
	domain.PhenotypeRapid:        {CategoryInfo, "Rapid Metabolizer", "→"},
	domain.PhenotypeUltraRapid:   {CategoryPurple, "Ultra-Rapid", "↑↑"},
}

var unknownPhenotype = PhenotypeMeta{CategorySecondary, "Unknown", "?"}

var riskTable = map[domain.RiskLabel]RiskMeta{
	domain.RiskSafe:         {CategorySafe, "✓"},
	domain.RiskAdjustDosage: {CategoryWarning, "⚡"},
	domain.RiskToxic:        {CategoryDanger, "☠"},
	domain.RiskIneffective:  {CategoryDanger, "✗"},
}

var severityTable = map[string]SeverityMeta{
	"none":     {8, TierGreen, 1, "No Risk"},
	"low":      {30, TierAmber, 2, "Low Risk"},
	"moderate": {55, TierOrange, 3, "Moderate"},
	"high":     {78, TierRed, 4, "High Risk"},
	"critical": {96, TierRed, 5, "Critical"},
}

// Phenotype returns the display metadata for a phenotype code. Codes are
// matched exactly; anything else is Unknown.
func Phenotype(code domain.PhenotypeCode) PhenotypeMeta {
	if meta, ok := phenotypeTable[code]; ok {
		return meta
	}
	return unknownPhenotype
}

// Risk returns badge metadata for a risk label. An absent label renders "–",
// an unrecognized one "?".
func Risk(label domain.RiskLabel) RiskMeta {
	if label == "" {
		return RiskMeta{CategorySecondary, "–"}
	}
	if meta, ok := riskTable[label]; ok {
		return meta
	}
	return RiskMeta{CategorySecondary, "?"}
}

// RiskAccent returns the border accent tier for a risk label.
func RiskAccent(label domain.RiskLabel) Tier {
	switch label {
	case domain.RiskSafe:
		return TierGreen
	case domain.RiskAdjustDosage:
		return TierAmber
	case domain.RiskToxic, domain.RiskIneffective:
		return TierRed
	default:
		return TierPurple
	}
}

// Severity returns meter settings for a severity level, matched
// case-insensitively. Unknown levels keep their raw text as the label.
func Severity(raw string) SeverityMeta {
	if meta, ok := severityTable[strings.ToLower(raw)]; ok {
		return meta
	}
	label := raw
	if label == "" {
		label = "Unknown"
	}
	return SeverityMeta{FillPercent: 0, Tier: TierMuted, Ticks: 0, Label: label}
}

// ActivityScore bands a numeric activity score independently of any
// phenotype call: 0 is No Activity, below 1.25 Reduced, up to and including
// 2.25 Normal, above that Increased.
func ActivityScore(score float64) ActivityBand {
	switch {
	case score == 0:
		return ActivityBand{TierDanger, "No Activity"}
	case score < 1.25:
		return ActivityBand{TierAmber, "Reduced"}
	case score <= 2.25:
		return ActivityBand{TierGreen, "Normal"}
	default:
		return ActivityBand{TierPurple, "Increased"}
	}
}

// AlleleWeight is the relative bar width, in percent, of one allele's score.
func AlleleWeight(score float64) float64 {
	return math.Min(score*40, 100)
}
