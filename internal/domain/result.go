package domain

// RiskLevel buckets a numeric risk score for reporting.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// LevelForScore maps a 0-100 score to a risk level. Lower bounds are
// inclusive: >=80 Critical, >=60 High, >=40 Medium, else Low.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Classification labels for the final per-transaction decision.
const (
	LabelFraud      = "Fraud"
	LabelLegitimate = "Legitimate"
)

// RiskFactor is one scored indicator emitted by the rule-based scorer.
// Emission order is significant: the first factors are the ones surfaced as
// top reasons in explanations.
type RiskFactor struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// RuleResult is the rule-based scorer's output for a single record.
type RuleResult struct {
	Score              int          `json:"risk_score"`
	Level              RiskLevel    `json:"risk_level"`
	Factors            []RiskFactor `json:"risk_factors"`
	SuspiciousPatterns []string     `json:"suspicious_patterns"`
	Explanation        string       `json:"explanation"`
	Recommendations    []string     `json:"recommendations"`
}

// Label returns the classification label for a rule result given the
// record's historical fraud flag.
func (r RuleResult) Label(historicalFraud bool) string {
	if historicalFraud || r.Score >= 60 {
		return LabelFraud
	}
	return LabelLegitimate
}

// Confidence is the rule score normalized to [0,1].
func (r RuleResult) Confidence() float64 {
	c := float64(r.Score) / 100
	if c > 1 {
		return 1
	}
	return c
}

// CompositeBreakdown holds the five independently clamped sub-scores of the
// composite scorer. Each is in [0,100] before weighting.
type CompositeBreakdown struct {
	Amount     float64 `json:"amount"`
	Identifier float64 `json:"identifier"`
	Temporal   float64 `json:"temporal"`
	Frequency  float64 `json:"frequency"`
	Network    float64 `json:"network"`
}

// CompositeResult is the composite scorer's output for a single record.
type CompositeResult struct {
	Score          float64            `json:"risk_score"`
	Confidence     float64            `json:"confidence"`
	Level          RiskLevel          `json:"risk_level"`
	Breakdown      CompositeBreakdown `json:"breakdown"`
	Explanation    string             `json:"explanation"`
	Recommendation string             `json:"recommendation"`
}

// ScreeningHit records an analyst-defined screening rule that matched a
// record. Hits annotate results; they never change the fixed scores.
type ScreeningHit struct {
	RuleID string `json:"rule_id"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}
