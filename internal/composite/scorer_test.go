package composite

import (
	"fmt"
	"math"
	"testing"

	"github.com/technoKC/fraud-shield/internal/batch"
	"github.com/technoKC/fraud-shield/internal/domain"
)

func singleRecordScorer(rec domain.TransactionRecord) *Scorer {
	return NewScorer(batch.Build([]domain.TransactionRecord{rec}))
}

func TestWeightsSumToOne(t *testing.T) {
	sum := weightAmount + weightIdentifier + weightTemporal + weightFrequency + weightNetwork
	if sum != 1.0 {
		t.Fatalf("weights sum to %v, want exactly 1.0", sum)
	}
}

func TestAmountSubScore(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{9999, 65},  // high-risk 40 + below-threshold 25
		{1111, 40},  // high-risk only
		{9500, 25},  // below 10000
		{199500, 25}, // below 200000
		{20000, 10}, // multiple of 1000 at or above 10000
		{5000, 0},   // multiple of 1000 but below 10000
		{2537, 0},
	}
	for _, tc := range tests {
		s := singleRecordScorer(domain.TransactionRecord{Amount: tc.amount})
		got := s.amountScore(tc.amount)
		if got != tc.want {
			t.Errorf("amountScore(%v) = %v, want %v", tc.amount, got, tc.want)
		}
	}
}

func TestAmountOutlier(t *testing.T) {
	records := make([]domain.TransactionRecord, 0, 12)
	for i := 0; i < 11; i++ {
		records = append(records, domain.TransactionRecord{
			ID: fmt.Sprintf("T%d", i), PayerID: fmt.Sprintf("p%d", i), Amount: 100,
		})
	}
	records = append(records, domain.TransactionRecord{ID: "T11", PayerID: "p11", Amount: 500000})
	s := NewScorer(batch.Build(records))

	// 500000 is above Q3+3*IQR, a multiple of 1000 at or above 10000, and
	// one below-threshold window does not apply.
	if got := s.amountScore(500000); got != 30 {
		t.Errorf("outlier amount scored %v, want 30", got)
	}
	if got := s.amountScore(100); got != 0 {
		t.Errorf("in-range amount scored %v, want 0", got)
	}
}

func TestIdentifierSubScore(t *testing.T) {
	tests := []struct {
		payer, beneficiary string
		want               float64
	}{
		{"merchant@okhdfc", "shop@okicici", 0},
		{"lucky-bonus@upi", "clean@ok", 15},          // keyword counts once per handle
		{"abcdefghijklm@upi", "clean@ok", 20},        // generated-looking lowercase run
		{"promo2024@upi", "clean@ok", 25},            // promotional
		{"win12345678@upi", "offer-deal@upi", 75},    // payer keyword+digits, beneficiary keyword+promo
	}
	for _, tc := range tests {
		s := singleRecordScorer(domain.TransactionRecord{PayerID: tc.payer, BeneficiaryID: tc.beneficiary})
		got := s.identifierScore(tc.payer, tc.beneficiary)
		if got != tc.want {
			t.Errorf("identifierScore(%q, %q) = %v, want %v", tc.payer, tc.beneficiary, got, tc.want)
		}
	}
}

func TestIdentifierClamped(t *testing.T) {
	// Both handles hit keyword + generated + promotional: raw 120, clamped.
	id := "promobonus12345678@upi"
	s := singleRecordScorer(domain.TransactionRecord{PayerID: id, BeneficiaryID: id})
	if got := s.identifierScore(id, id); got != 100 {
		t.Errorf("identifierScore = %v, want clamp at 100", got)
	}
}

func TestTemporalSubScore(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want float64
	}{
		{"late night weekday", "2024-01-17 03:00:00", 20},
		{"early morning", "2024-01-17 06:00:00", 10},
		{"business hours", "2024-01-17 14:00:00", 0},
		{"weekend afternoon", "2024-01-20 14:00:00", 5},
		{"late night weekend", "2024-01-21 02:00:00", 25},
		{"unparsable", "garbage", 10},
		{"empty", "", 10},
	}
	for _, tc := range tests {
		s := singleRecordScorer(domain.TransactionRecord{Timestamp: tc.ts})
		got := s.temporalScore(domain.TransactionRecord{Timestamp: tc.ts})
		if got != tc.want {
			t.Errorf("%s: temporalScore = %v, want %v", tc.name, got, tc.want)
		}
		_ = s
	}
}

func TestFrequencySubScore(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 12; i++ {
		records = append(records, domain.TransactionRecord{
			ID: fmt.Sprintf("B%d", i), PayerID: "busy@upi", BeneficiaryID: "x@upi", Amount: 100,
		})
	}
	for i := 0; i < 6; i++ {
		records = append(records, domain.TransactionRecord{
			ID: fmt.Sprintf("M%d", i), PayerID: "medium@upi", BeneficiaryID: "x@upi", Amount: float64(100 + i),
		})
	}
	records = append(records, domain.TransactionRecord{ID: "S1", PayerID: "single@upi", BeneficiaryID: "x@upi"})
	s := NewScorer(batch.Build(records))

	// busy: 12 records (>10) +30, all-identical amounts +25
	if got := s.frequencyScore("busy@upi"); got != 55 {
		t.Errorf("frequencyScore(busy) = %v, want 55", got)
	}
	// medium: 6 records (>5) +20, all distinct amounts
	if got := s.frequencyScore("medium@upi"); got != 20 {
		t.Errorf("frequencyScore(medium) = %v, want 20", got)
	}
	if got := s.frequencyScore("single@upi"); got != 0 {
		t.Errorf("frequencyScore(single) = %v, want 0", got)
	}
}

func TestNetworkSubScore(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 21; i++ {
		records = append(records, domain.TransactionRecord{
			ID: fmt.Sprintf("H%d", i), PayerID: "hub@upi", BeneficiaryID: fmt.Sprintf("b%d@upi", i),
		})
	}
	records = append(records,
		domain.TransactionRecord{ID: "C1", PayerID: "a@upi", BeneficiaryID: "b@upi"},
		domain.TransactionRecord{ID: "C2", PayerID: "b@upi", BeneficiaryID: "a@upi"},
	)
	s := NewScorer(batch.Build(records))

	if got := s.networkScore("hub@upi", "b0@upi"); got != 25 {
		t.Errorf("networkScore(hub) = %v, want 25 (fan-out)", got)
	}
	if got := s.networkScore("a@upi", "b@upi"); got != 15 {
		t.Errorf("networkScore(circular) = %v, want 15", got)
	}
	if got := s.networkScore("b0@upi", "x@upi"); got != 0 {
		t.Errorf("networkScore(clean) = %v, want 0", got)
	}
}

func TestScoreBounds(t *testing.T) {
	// A maximally suspicious record still lands inside [0,100].
	rec := domain.TransactionRecord{
		ID:        "T1",
		Timestamp: "2024-01-21 03:00:00",
		Amount:    9999,
		PayerID:   "promobonus12345678@upi",
		BeneficiaryID: "promobonus12345678@upi",
	}
	result := singleRecordScorer(rec).Score(rec)

	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("score %v outside [0,100]", result.Score)
	}
	for _, sub := range []float64{
		result.Breakdown.Amount, result.Breakdown.Identifier, result.Breakdown.Temporal,
		result.Breakdown.Frequency, result.Breakdown.Network,
	} {
		if sub < 0 || sub > 100 {
			t.Errorf("sub-score %v outside [0,100]", sub)
		}
	}
	if result.Confidence != result.Score/100 {
		t.Errorf("confidence = %v, want score/100", result.Confidence)
	}
}

func TestScoreWeightedTotal(t *testing.T) {
	rec := domain.TransactionRecord{
		ID:        "T1",
		Timestamp: "2024-01-17 14:00:00",
		Amount:    9999, // amount sub-score 65
		PayerID:   "clean@okhdfc",
		BeneficiaryID: "shop@okicici",
	}
	result := singleRecordScorer(rec).Score(rec)

	want := 65 * weightAmount
	if math.Abs(result.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", result.Score, want)
	}
	if result.Level != domain.RiskLow {
		t.Errorf("level = %s, want Low", result.Level)
	}
	if result.Recommendation != "Standard processing" {
		t.Errorf("recommendation = %q", result.Recommendation)
	}
}

func TestLooksGenerated(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"user12345678@upi", true},
		{"user1234567@upi", false},
		{"abcdefghij@upi", true},
		{"abcdefghi@upi", false},
		{"abc123def456@upi", false},
	}
	for _, tc := range tests {
		if got := looksGenerated(tc.id); got != tc.want {
			t.Errorf("looksGenerated(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
