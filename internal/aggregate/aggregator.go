// Package aggregate joins the scorers' outputs with graph annotations into
// the per-transaction results and the portfolio summary.
package aggregate

import (
	"sort"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// Aggregator merges rule results, composite results, and graph context.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Join merges the three result streams for one batch. The join key is the
// record position: ruleResults[i] and compositeResults[i] must describe
// records[i]. The slices are produced index-aligned by the engine and are
// never reordered or filtered between scoring and aggregation.
func (a *Aggregator) Join(
	records []domain.TransactionRecord,
	ruleResults []domain.RuleResult,
	compositeResults []domain.CompositeResult,
	graph domain.Graph,
	compositeSummary domain.CompositeSummary,
) domain.BatchReport {
	nodesByID := make(map[string]domain.GraphNode, len(graph.Nodes))
	for _, n := range graph.Nodes {
		nodesByID[n.ID] = n
	}

	results := make([]domain.ResultEntry, 0, len(records))
	var fraudTransactions []domain.TransactionResult

	for i, rec := range records {
		rule := ruleResults[i]
		composite := compositeResults[i]

		tx := domain.TransactionResult{
			TransactionID:      rec.ID,
			Timestamp:          rec.Timestamp,
			Amount:             rec.Amount,
			PayerVPA:           rec.PayerID,
			BeneficiaryVPA:     rec.BeneficiaryID,
			IsFraud:            rec.HistoricalFraud,
			RuleScore:          rule.Score,
			RiskLevel:          rule.Level,
			SuspiciousPatterns: rule.SuspiciousPatterns,
			RiskFactors:        rule.Factors,
			Explanation:        rule.Explanation,
			DeviceID:           rec.DeviceID,
			IPAddress:          rec.IPAddress,
			ResponseCode:       rec.ResponseCode,
		}

		entry := domain.ResultEntry{
			Transaction: tx,
			RuleClassification: domain.RuleClassification{
				Label:      rule.Label(rec.HistoricalFraud),
				Confidence: rule.Confidence(),
				Risk:       rule.Level,
			},
			CompositeClassification: domain.CompositeClassification{
				Score:          composite.Score,
				Confidence:     composite.Confidence,
				Risk:           composite.Level,
				Breakdown:      composite.Breakdown,
				Explanation:    composite.Explanation,
				Recommendation: composite.Recommendation,
			},
			Payer:           nodeContext(nodesByID, rec.PayerID),
			Beneficiary:     nodeContext(nodesByID, rec.BeneficiaryID),
			Explanation:     []string{rule.Explanation},
			Recommendations: rule.Recommendations,
		}
		results = append(results, entry)

		if entry.RuleClassification.Label == domain.LabelFraud {
			fraudTransactions = append(fraudTransactions, tx)
		}
	}

	return domain.BatchReport{
		TotalTransactions: len(records),
		FraudDetected:     len(fraudTransactions),
		FraudTransactions: fraudTransactions,
		Results:           results,
		Graph:             graph,
		PortfolioSummary: portfolioSummary(
			records, ruleResults, fraudTransactions, graph, compositeSummary),
	}
}

func nodeContext(nodes map[string]domain.GraphNode, id string) domain.NodeContext {
	n, ok := nodes[id]
	if !ok {
		return domain.NodeContext{ID: id, Tier: domain.NodeTierClean, Importance: 1.0}
	}
	return domain.NodeContext{
		ID:         n.ID,
		Tier:       n.Tier,
		Importance: n.Importance,
		ClusterID:  n.ClusterID,
		FraudCount: n.FraudCount,
	}
}

// portfolioSummary builds the batch-level rollup. All statistics over the
// flagged subset are safe for an empty subset.
func portfolioSummary(
	records []domain.TransactionRecord,
	ruleResults []domain.RuleResult,
	flagged []domain.TransactionResult,
	graph domain.Graph,
	compositeSummary domain.CompositeSummary,
) domain.PortfolioSummary {
	distribution := map[domain.RiskLevel]int{
		domain.RiskLow:      0,
		domain.RiskMedium:   0,
		domain.RiskHigh:     0,
		domain.RiskCritical: 0,
	}
	for _, r := range ruleResults {
		distribution[r.Level]++
	}

	fraudRate := 0.0
	if len(records) > 0 {
		fraudRate = float64(len(flagged)) / float64(len(records)) * 100
	}

	return domain.PortfolioSummary{
		TotalAnalyzed:      len(records),
		FraudDetected:      len(flagged),
		FraudRate:          fraudRate,
		RiskDistribution:   distribution,
		CommonPatterns:     commonPatterns(flagged),
		AmountAnalysis:     amountAnalysis(flagged),
		RepeatParticipants: repeatParticipants(flagged),
		ClusterInfo:        graph.Statistics.ClusterInfo,
		NetworkDensity:     graph.Statistics.NetworkDensity,
		Composite:          compositeSummary,
	}
}

// commonPatterns counts keyword matches across flagged records and keeps the
// five most frequent.
func commonPatterns(flagged []domain.TransactionResult) map[string]int {
	counts := make(map[string]int)
	for _, tx := range flagged {
		for _, p := range tx.SuspiciousPatterns {
			counts[p]++
		}
	}
	if len(counts) <= 5 {
		return counts
	}

	type kv struct {
		pattern string
		count   int
	}
	sorted := make([]kv, 0, len(counts))
	for p, c := range counts {
		sorted = append(sorted, kv{pattern: p, count: c})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].pattern < sorted[j].pattern
	})

	top := make(map[string]int, 5)
	for _, e := range sorted[:5] {
		top[e.pattern] = e.count
	}
	return top
}

func amountAnalysis(flagged []domain.TransactionResult) domain.AmountAnalysis {
	if len(flagged) == 0 {
		return domain.AmountAnalysis{}
	}

	total := 0.0
	maxAmount := flagged[0].Amount
	minAmount := flagged[0].Amount
	for _, tx := range flagged {
		total += tx.Amount
		if tx.Amount > maxAmount {
			maxAmount = tx.Amount
		}
		if tx.Amount < minAmount {
			minAmount = tx.Amount
		}
	}

	return domain.AmountAnalysis{
		AverageFraudAmount: total / float64(len(flagged)),
		MaxFraudAmount:     maxAmount,
		MinFraudAmount:     minAmount,
		TotalFraudValue:    total,
	}
}

// repeatParticipants lists handles appearing in more than one flagged
// record, most frequent first, at most five.
func repeatParticipants(flagged []domain.TransactionResult) []string {
	counts := make(map[string]int)
	for _, tx := range flagged {
		counts[tx.PayerVPA]++
		counts[tx.BeneficiaryVPA]++
	}

	type kv struct {
		vpa   string
		count int
	}
	var repeats []kv
	for vpa, c := range counts {
		if c > 1 {
			repeats = append(repeats, kv{vpa: vpa, count: c})
		}
	}
	sort.Slice(repeats, func(i, j int) bool {
		if repeats[i].count != repeats[j].count {
			return repeats[i].count > repeats[j].count
		}
		return repeats[i].vpa < repeats[j].vpa
	})
	if len(repeats) > 5 {
		repeats = repeats[:5]
	}

	out := make([]string, 0, len(repeats))
	for _, r := range repeats {
		out = append(out, r.vpa)
	}
	return out
}
