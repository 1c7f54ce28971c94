package composite

import (
	"sort"

	"github.com/technoKC/fraud-shield/internal/batch"
	"github.com/technoKC/fraud-shield/internal/domain"
)

// orderedHighRiskAmounts fixes the reporting order for amount clusters.
var orderedHighRiskAmounts = []float64{
	9999, 19999, 29999, 49999, 99999,
	1111, 2222, 3333, 4444, 5555,
}

// Summarize builds the composite scorer's batch-level analytics from the
// per-record results: mean score, level distribution, amount clusters over
// flagged records, and high-frequency payer anomalies.
func Summarize(b *batch.Batch, results []domain.CompositeResult) domain.CompositeSummary {
	distribution := map[domain.RiskLevel]int{
		domain.RiskLow:      0,
		domain.RiskMedium:   0,
		domain.RiskHigh:     0,
		domain.RiskCritical: 0,
	}

	var sum float64
	for _, r := range results {
		sum += r.Score
		distribution[r.Level]++
	}
	mean := 0.0
	if len(results) > 0 {
		mean = sum / float64(len(results))
	}

	return domain.CompositeSummary{
		AverageRiskScore:    mean,
		RiskDistribution:    distribution,
		AmountClusters:      amountClusters(b),
		BehavioralAnomalies: behavioralAnomalies(b),
	}
}

// amountClusters groups historically flagged records sharing one high-risk
// amount. A cluster is reported when more than one record shares the amount;
// at most five clusters are returned.
func amountClusters(b *batch.Batch) []domain.AmountCluster {
	counts := make(map[float64]int)
	for _, rec := range b.Records {
		if !rec.HistoricalFraud {
			continue
		}
		if _, ok := highRiskAmounts[rec.Amount]; ok {
			counts[rec.Amount]++
		}
	}

	var clusters []domain.AmountCluster
	for _, amount := range orderedHighRiskAmounts {
		if counts[amount] > 1 {
			clusters = append(clusters, domain.AmountCluster{
				Type:      "amount_cluster",
				Amount:    amount,
				Count:     counts[amount],
				RiskLevel: "HIGH",
			})
		}
		if len(clusters) == 5 {
			break
		}
	}
	return clusters
}

// behavioralAnomalies surfaces the highest-frequency payers: more than ten
// records in the batch, at most three reported, scored min(count*5, 100).
func behavioralAnomalies(b *batch.Batch) []domain.BehavioralAnomaly {
	type payerCount struct {
		vpa   string
		count int
	}

	seen := make(map[string]struct{})
	var payers []payerCount
	for _, rec := range b.Records {
		if _, ok := seen[rec.PayerID]; ok {
			continue
		}
		seen[rec.PayerID] = struct{}{}
		if count := b.PayerCount(rec.PayerID); count > 10 {
			payers = append(payers, payerCount{vpa: rec.PayerID, count: count})
		}
	}

	sort.Slice(payers, func(i, j int) bool {
		if payers[i].count != payers[j].count {
			return payers[i].count > payers[j].count
		}
		return payers[i].vpa < payers[j].vpa
	})
	if len(payers) > 3 {
		payers = payers[:3]
	}

	anomalies := make([]domain.BehavioralAnomaly, 0, len(payers))
	for _, p := range payers {
		score := float64(p.count * 5)
		if score > 100 {
			score = 100
		}
		anomalies = append(anomalies, domain.BehavioralAnomaly{
			Type:             "high_frequency",
			VPA:              p.vpa,
			TransactionCount: p.count,
			AnomalyScore:     score,
		})
	}
	return anomalies
}
