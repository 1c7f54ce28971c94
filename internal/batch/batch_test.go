package batch

import (
	"fmt"
	"testing"

	"github.com/technoKC/fraud-shield/internal/domain"
)

func rec(id, payer, beneficiary string, amount float64) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:            id,
		PayerID:       payer,
		BeneficiaryID: beneficiary,
		Amount:        amount,
	}
}

func TestBuildAggregates(t *testing.T) {
	records := []domain.TransactionRecord{
		rec("T1", "a@upi", "b@upi", 100),
		rec("T2", "a@upi", "c@upi", 100),
		rec("T3", "a@upi", "d@upi", 200),
		rec("T4", "b@upi", "a@upi", 500),
	}
	b := Build(records)

	if got := b.PayerCount("a@upi"); got != 3 {
		t.Errorf("PayerCount(a) = %d, want 3", got)
	}
	if got := b.PayerCount("missing@upi"); got != 0 {
		t.Errorf("PayerCount(missing) = %d, want 0", got)
	}
	if got := b.FanOut("a@upi"); got != 3 {
		t.Errorf("FanOut(a) = %d, want 3", got)
	}
	if got := b.FanIn("a@upi"); got != 1 {
		t.Errorf("FanIn(a) = %d, want 1", got)
	}
	if !b.HasPair("b@upi", "a@upi") {
		t.Error("HasPair(b, a) = false, want true")
	}
	if b.HasPair("c@upi", "a@upi") {
		t.Error("HasPair(c, a) = true, want false")
	}
}

func TestDuplicateHeavy(t *testing.T) {
	records := []domain.TransactionRecord{
		rec("T1", "dup@upi", "x@upi", 100),
		rec("T2", "dup@upi", "x@upi", 100),
		rec("T3", "dup@upi", "x@upi", 100),
		rec("T4", "dup@upi", "x@upi", 200),
		rec("T5", "var@upi", "x@upi", 10),
		rec("T6", "var@upi", "x@upi", 20),
	}
	b := Build(records)

	// dup@upi has 2 distinct amounts across 4 records: 2 < 4*0.5 is false,
	// so the boundary case stays clean.
	if b.DuplicateHeavy("dup@upi") {
		t.Error("exactly half distinct should not count as duplicate-heavy")
	}
	if b.DuplicateHeavy("var@upi") {
		t.Error("all-distinct payer flagged as duplicate-heavy")
	}

	records = append(records, rec("T7", "dup@upi", "x@upi", 100))
	b = Build(records)
	if !b.DuplicateHeavy("dup@upi") {
		t.Error("2 distinct of 5 records should count as duplicate-heavy")
	}
}

func TestOutlierBound(t *testing.T) {
	small := Build([]domain.TransactionRecord{rec("T1", "a", "b", 100)})
	if _, ok := small.OutlierBound(); ok {
		t.Error("small batch should not expose an outlier bound")
	}

	var records []domain.TransactionRecord
	for i := 0; i < 12; i++ {
		records = append(records, rec(fmt.Sprintf("T%d", i), "a", "b", float64(100+i*10)))
	}
	b := Build(records)
	bound, ok := b.OutlierBound()
	if !ok {
		t.Fatal("batch of 12 should expose an outlier bound")
	}
	if bound <= 210 {
		t.Errorf("outlier bound %v should exceed the max amount", bound)
	}
}
