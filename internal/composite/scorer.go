// Package composite implements the multi-factor risk scorer: five
// independently normalized sub-scores blended with fixed weights, each one
// reading precomputed batch aggregates instead of rescanning records.
package composite

import (
	"strings"
	"time"

	"github.com/technoKC/fraud-shield/internal/batch"
	"github.com/technoKC/fraud-shield/internal/domain"
)

// Weights for the five sub-scores. They sum to exactly 1.0.
const (
	weightAmount     = 0.25
	weightIdentifier = 0.20
	weightTemporal   = 0.15
	weightFrequency  = 0.20
	weightNetwork    = 0.20
)

// suspiciousKeywords is the wider handle keyword list used by this scorer.
// Only the first match per handle counts.
var suspiciousKeywords = []string{
	"pay", "rzp", "bonus", "win", "loan", "cashback",
	"credit", "reward", "prize", "offer", "lucky", "gift",
	"free", "earn", "claim", "lottery", "jackpot", "scratch",
	"instant", "quick", "easy", "money", "cash",
}

var promotionalKeywords = []string{"promo", "offer", "deal", "discount", "sale"}

// highRiskAmounts is the wider set used by this scorer: structuring figures
// plus repeated-digit amounts.
var highRiskAmounts = map[float64]struct{}{
	9999: {}, 19999: {}, 29999: {}, 49999: {}, 99999: {},
	1111: {}, 2222: {}, 3333: {}, 4444: {}, 5555: {},
}

var amountThresholds = []float64{10000, 50000, 100000, 200000}

// Scorer computes composite risk scores against one batch's aggregates.
type Scorer struct {
	batch *batch.Batch
}

// NewScorer binds a scorer to a batch. The batch aggregates are read-only,
// so one scorer may serve concurrent per-record evaluations.
func NewScorer(b *batch.Batch) *Scorer {
	return &Scorer{batch: b}
}

// Score evaluates one record. Each sub-score is clamped to [0,100] before
// weighting and the weighted total is clamped to 100.
func (s *Scorer) Score(rec domain.TransactionRecord) domain.CompositeResult {
	breakdown := domain.CompositeBreakdown{
		Amount:     s.amountScore(rec.Amount),
		Identifier: s.identifierScore(rec.PayerID, rec.BeneficiaryID),
		Temporal:   s.temporalScore(rec),
		Frequency:  s.frequencyScore(rec.PayerID),
		Network:    s.networkScore(rec.PayerID, rec.BeneficiaryID),
	}

	total := breakdown.Amount*weightAmount +
		breakdown.Identifier*weightIdentifier +
		breakdown.Temporal*weightTemporal +
		breakdown.Frequency*weightFrequency +
		breakdown.Network*weightNetwork
	if total > 100 {
		total = 100
	}

	level := domain.LevelForScore(total)
	confidence := total / 100
	if confidence > 1 {
		confidence = 1
	}

	return domain.CompositeResult{
		Score:          total,
		Confidence:     confidence,
		Level:          level,
		Breakdown:      breakdown,
		Explanation:    s.explain(rec, total),
		Recommendation: recommendationFor(level),
	}
}

func (s *Scorer) amountScore(amount float64) float64 {
	score := 0.0

	if _, ok := highRiskAmounts[amount]; ok {
		score += 40
	}

	for _, threshold := range amountThresholds {
		if amount >= threshold-1000 && amount < threshold {
			score += 25
			break
		}
	}

	if bound, ok := s.batch.OutlierBound(); ok && amount > bound {
		score += 20
	}

	if amount >= 10000 && amount == float64(int64(amount)) && int64(amount)%1000 == 0 {
		score += 10
	}

	return clamp(score)
}

func (s *Scorer) identifierScore(payerID, beneficiaryID string) float64 {
	score := 0.0
	for _, id := range []string{strings.ToLower(payerID), strings.ToLower(beneficiaryID)} {
		for _, kw := range suspiciousKeywords {
			if strings.Contains(id, kw) {
				score += 15
				break
			}
		}
		if looksGenerated(id) {
			score += 20
		}
		if looksPromotional(id) {
			score += 25
		}
	}
	return clamp(score)
}

// temporalScore penalizes unparsable timestamps with a flat +10 where the
// rule scorer skips them silently. The asymmetry is intentional.
func (s *Scorer) temporalScore(rec domain.TransactionRecord) float64 {
	ts, ok := rec.ParseTimestamp()
	if !ok {
		return 10
	}

	score := 0.0
	hour := ts.Hour()
	switch {
	case hour >= 1 && hour <= 5:
		score += 20
	case hour >= 5 && hour < 7:
		score += 10
	}
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		score += 5
	}
	return clamp(score)
}

func (s *Scorer) frequencyScore(payerID string) float64 {
	count := s.batch.PayerCount(payerID)
	if count <= 1 {
		return 0
	}

	score := 0.0
	if count > 10 {
		score += 30
	} else if count > 5 {
		score += 20
	}
	if s.batch.DuplicateHeavy(payerID) {
		score += 25
	}
	return clamp(score)
}

func (s *Scorer) networkScore(payerID, beneficiaryID string) float64 {
	score := 0.0
	if s.batch.FanOut(payerID) > 20 {
		score += 25
	}
	if s.batch.FanIn(beneficiaryID) > 20 {
		score += 25
	}
	if s.batch.HasPair(beneficiaryID, payerID) {
		score += 15
	}
	return clamp(score)
}

// explain surfaces the first matched high-signal reasons for the score.
func (s *Scorer) explain(rec domain.TransactionRecord, score float64) string {
	var parts []string

	if _, ok := highRiskAmounts[rec.Amount]; ok {
		parts = append(parts, "Suspicious amount pattern detected")
	}

	payer := strings.ToLower(rec.PayerID)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(payer, kw) {
			parts = append(parts, "Suspicious VPA pattern: '"+kw+"'")
			break
		}
	}

	if score >= 70 {
		parts = append(parts, "Multiple fraud indicators present")
	}

	if len(parts) == 0 {
		return "Analysis complete"
	}
	return strings.Join(parts, " | ")
}

func recommendationFor(level domain.RiskLevel) string {
	switch level {
	case domain.RiskCritical:
		return "Immediate investigation required"
	case domain.RiskHigh:
		return "Flag for manual review"
	case domain.RiskMedium:
		return "Monitor closely"
	default:
		return "Standard processing"
	}
}

// looksGenerated reports whether a handle has the shape of an auto-generated
// id: a run of 8 or more digits, or 10 or more lowercase letters.
func looksGenerated(id string) bool {
	digits, letters := 0, 0
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
			digits++
			letters = 0
		case r >= 'a' && r <= 'z':
			letters++
			digits = 0
		default:
			digits, letters = 0, 0
		}
		if digits >= 8 || letters >= 10 {
			return true
		}
	}
	return false
}

func looksPromotional(id string) bool {
	for _, kw := range promotionalKeywords {
		if strings.Contains(id, kw) {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
