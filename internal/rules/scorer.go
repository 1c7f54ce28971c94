// Package rules provides the deterministic rule-based risk scorer and the
// CEL-based analyst screening engine.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// suspiciousKeywords flag a payment handle when found in either party's id.
// Each match adds its own factor.
var suspiciousKeywords = []string{
	"pay", "rzp", "bonus", "win", "loan", "cashback",
	"credit", "reward", "prize", "offer", "lucky", "gift",
	"free", "earn", "claim", "lottery", "jackpot",
}

// highRiskAmounts are just-under-limit figures favored by structuring.
var highRiskAmounts = map[float64]struct{}{
	9999: {}, 19999: {}, 29999: {}, 49999: {}, 99999: {},
}

// roundAmounts only score when the amount is not already high-risk.
var roundAmounts = map[float64]struct{}{
	1000: {}, 2000: {}, 5000: {}, 10000: {}, 50000: {}, 100000: {},
}

// reportingThresholds drive the just-below-threshold check. The window is
// half-open: [threshold-1000, threshold).
var reportingThresholds = []float64{10000, 50000, 100000}

// Scorer is the deterministic additive risk scorer. It needs no batch
// context; every check reads a single record against fixed tables.
type Scorer struct{}

// NewScorer returns a rule-based scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates one record against the full rule table. The score is a
// non-negative integer, unbounded by the additions but floored at 80 when the
// record carries a historical fraud flag.
func (s *Scorer) Score(rec domain.TransactionRecord) domain.RuleResult {
	var factors []domain.RiskFactor
	var patterns []string
	score := 0

	payer := strings.ToLower(rec.PayerID)
	beneficiary := strings.ToLower(rec.BeneficiaryID)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(payer, kw) || strings.Contains(beneficiary, kw) {
			score += 15
			patterns = append(patterns, kw)
			factors = append(factors, domain.RiskFactor{
				Label: fmt.Sprintf("Suspicious pattern '%s' in VPA", kw),
				Score: 15,
			})
		}
	}

	if _, ok := highRiskAmounts[rec.Amount]; ok {
		score += 20
		factors = append(factors, domain.RiskFactor{
			Label: fmt.Sprintf("High-risk amount: ₹%s", formatAmount(rec.Amount)),
			Score: 20,
		})
	} else if _, ok := roundAmounts[rec.Amount]; ok {
		score += 10
		factors = append(factors, domain.RiskFactor{
			Label: fmt.Sprintf("Round amount: ₹%s", formatAmount(rec.Amount)),
			Score: 10,
		})
	}

	for _, threshold := range reportingThresholds {
		if rec.Amount >= threshold-1000 && rec.Amount < threshold {
			score += 15
			factors = append(factors, domain.RiskFactor{
				Label: fmt.Sprintf("Amount just below threshold: ₹%s", formatAmount(rec.Amount)),
				Score: 15,
			})
			break
		}
	}

	// Unparsable timestamps are skipped without a factor.
	if ts, ok := rec.ParseTimestamp(); ok {
		hour := ts.Hour()
		if hour >= 1 && hour <= 5 {
			score += 10
			factors = append(factors, domain.RiskFactor{
				Label: fmt.Sprintf("Suspicious time: %d:00 hrs", hour),
				Score: 10,
			})
		}
		if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
			score += 5
			factors = append(factors, domain.RiskFactor{Label: "Weekend transaction", Score: 5})
		}
	}

	if rec.DeviceID == "" {
		score += 10
		factors = append(factors, domain.RiskFactor{Label: "Missing device ID", Score: 10})
	}

	if rec.IPAddress == "" || strings.HasPrefix(rec.IPAddress, "10.") || rec.IPAddress == "0.0.0.0" {
		score += 5
		factors = append(factors, domain.RiskFactor{Label: "Suspicious IP address", Score: 5})
	}

	if rec.StatusCode != "SUCCESS" || rec.ResponseCode != "00" {
		score += 5
		factors = append(factors, domain.RiskFactor{Label: "Transaction failure indicators", Score: 5})
	}

	if rec.HistoricalFraud {
		if score < 80 {
			score = 80
		}
		factors = append([]domain.RiskFactor{
			{Label: "Confirmed fraud in historical data", Score: 80},
		}, factors...)
	}

	level := domain.LevelForScore(float64(score))

	return domain.RuleResult{
		Score:              score,
		Level:              level,
		Factors:            factors,
		SuspiciousPatterns: patterns,
		Explanation:        buildExplanation(rec.HistoricalFraud, patterns, factors, score),
		Recommendations:    buildRecommendations(level, factors),
	}
}

// buildExplanation assembles the human-readable summary for one record,
// surfacing the confirmed-fraud banner, the score band, matched handle
// patterns, and the top three factors.
func buildExplanation(historicalFraud bool, patterns []string, factors []domain.RiskFactor, score int) string {
	var parts []string

	if historicalFraud {
		parts = append(parts, "CONFIRMED FRAUD: Transaction flagged in historical fraud database")
	}

	switch {
	case score >= 80:
		parts = append(parts, "CRITICAL RISK: Multiple high-risk indicators detected")
	case score >= 60:
		parts = append(parts, "HIGH RISK: Significant suspicious patterns identified")
	case score >= 40:
		parts = append(parts, "MEDIUM RISK: Some suspicious indicators present")
	}

	if len(patterns) > 0 {
		parts = append(parts, "Suspicious VPA patterns: "+strings.Join(patterns, ", "))
	}

	if len(factors) > 0 {
		top := factors
		if len(top) > 3 {
			top = top[:3]
		}
		labels := make([]string, len(top))
		for i, f := range top {
			labels[i] = f.Label
		}
		parts = append(parts, "Key risk factors: "+strings.Join(labels, "; "))
	}

	if len(parts) == 0 {
		parts = append(parts, "Transaction appears legitimate based on all checks")
	}

	return strings.Join(parts, " | ")
}

// buildRecommendations returns at most three next actions, level-driven
// first and then factor-specific.
func buildRecommendations(level domain.RiskLevel, factors []domain.RiskFactor) []string {
	var recs []string

	switch level {
	case domain.RiskCritical:
		recs = append(recs,
			"Immediate account freeze recommended",
			"Contact account holder for verification",
			"Review all recent transactions from this account",
		)
	case domain.RiskHigh:
		recs = append(recs,
			"Flag account for enhanced monitoring",
			"Require additional authentication for future transactions",
			"Review transaction history for patterns",
		)
	case domain.RiskMedium:
		recs = append(recs,
			"Monitor account for unusual activity",
			"Consider sending security alert to account holder",
		)
	default:
		recs = append(recs, "Continue standard monitoring procedures")
	}

	hasFactor := func(needle string) bool {
		for _, f := range factors {
			if strings.Contains(strings.ToLower(f.Label), needle) {
				return true
			}
		}
		return false
	}
	if hasFactor("device") {
		recs = append(recs, "Verify device authentication")
	}
	if hasFactor("time") {
		recs = append(recs, "Check for automated/bot activity")
	}
	if hasFactor("amount") {
		recs = append(recs, "Verify transaction purpose with account holder")
	}

	if len(recs) > 3 {
		recs = recs[:3]
	}
	return recs
}

// formatAmount renders a whole-rupee figure with thousands separators.
func formatAmount(amount float64) string {
	s := fmt.Sprintf("%.0f", amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
