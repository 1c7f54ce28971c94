package batch

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// Batch carries the records of one upload together with the aggregates
// precomputed once and shared by every per-record evaluation. Aggregates
// are immutable after Build, so scorers may read them concurrently.
type Batch struct {
	Records []domain.TransactionRecord

	q1, q3, iqr  float64
	hasQuantiles bool

	payerIndices map[string][]int
	payerAmounts map[string][]float64
	fanOut       map[string]map[string]struct{}
	fanIn        map[string]map[string]struct{}
	pairs        map[pair]struct{}
}

type pair struct {
	from, to string
}

// Build computes the batch aggregates in a single pass over the records.
func Build(records []domain.TransactionRecord) *Batch {
	b := &Batch{
		Records:      records,
		payerIndices: make(map[string][]int),
		payerAmounts: make(map[string][]float64),
		fanOut:       make(map[string]map[string]struct{}),
		fanIn:        make(map[string]map[string]struct{}),
		pairs:        make(map[pair]struct{}),
	}

	amounts := make([]float64, 0, len(records))
	for i, rec := range records {
		amounts = append(amounts, rec.Amount)
		b.payerIndices[rec.PayerID] = append(b.payerIndices[rec.PayerID], i)
		b.payerAmounts[rec.PayerID] = append(b.payerAmounts[rec.PayerID], rec.Amount)

		out := b.fanOut[rec.PayerID]
		if out == nil {
			out = make(map[string]struct{})
			b.fanOut[rec.PayerID] = out
		}
		out[rec.BeneficiaryID] = struct{}{}

		in := b.fanIn[rec.BeneficiaryID]
		if in == nil {
			in = make(map[string]struct{})
			b.fanIn[rec.BeneficiaryID] = in
		}
		in[rec.PayerID] = struct{}{}

		b.pairs[pair{from: rec.PayerID, to: rec.BeneficiaryID}] = struct{}{}
	}

	// Quantile-based outlier bounds need more than ten observations to
	// mean anything; below that the amount scorer skips the check.
	if len(amounts) > 10 {
		sort.Float64s(amounts)
		b.q1 = stat.Quantile(0.25, stat.LinInterp, amounts, nil)
		b.q3 = stat.Quantile(0.75, stat.LinInterp, amounts, nil)
		b.iqr = b.q3 - b.q1
		b.hasQuantiles = true
	}

	return b
}

// OutlierBound returns the upper amount bound Q3 + 3*IQR. The second
// return is false when the batch is too small for quantiles.
func (b *Batch) OutlierBound() (float64, bool) {
	if !b.hasQuantiles {
		return 0, false
	}
	return b.q3 + 3*b.iqr, true
}

// PayerCount reports how many records in the batch share the payer.
func (b *Batch) PayerCount(payer string) int {
	return len(b.payerIndices[payer])
}

// PayerIndices returns the record indices for a payer, in batch order.
func (b *Batch) PayerIndices(payer string) []int {
	return b.payerIndices[payer]
}

// DuplicateHeavy reports whether more than half of a payer's amounts are
// repeats, i.e. the distinct amounts cover less than half the records.
func (b *Batch) DuplicateHeavy(payer string) bool {
	amounts := b.payerAmounts[payer]
	if len(amounts) == 0 {
		return false
	}
	distinct := make(map[float64]struct{}, len(amounts))
	for _, a := range amounts {
		distinct[a] = struct{}{}
	}
	return float64(len(distinct)) < float64(len(amounts))*0.5
}

// FanOut counts the distinct beneficiaries a payer sends to.
func (b *Batch) FanOut(payer string) int {
	return len(b.fanOut[payer])
}

// FanIn counts the distinct payers a beneficiary receives from.
func (b *Batch) FanIn(beneficiary string) int {
	return len(b.fanIn[beneficiary])
}

// HasPair reports whether any record in the batch moves money from
// one party to another. Used to spot circular flows.
func (b *Batch) HasPair(from, to string) bool {
	_, ok := b.pairs[pair{from: from, to: to}]
	return ok
}
