package composite

import (
	"fmt"
	"testing"

	"github.com/technoKC/fraud-shield/internal/batch"
	"github.com/technoKC/fraud-shield/internal/domain"
)

func TestSummarizeDistributionAndMean(t *testing.T) {
	b := batch.Build(nil)
	results := []domain.CompositeResult{
		{Score: 85, Level: domain.RiskCritical},
		{Score: 65, Level: domain.RiskHigh},
		{Score: 10, Level: domain.RiskLow},
		{Score: 40, Level: domain.RiskMedium},
	}
	summary := Summarize(b, results)

	if summary.AverageRiskScore != 50 {
		t.Errorf("mean = %v, want 50", summary.AverageRiskScore)
	}
	want := map[domain.RiskLevel]int{
		domain.RiskLow: 1, domain.RiskMedium: 1, domain.RiskHigh: 1, domain.RiskCritical: 1,
	}
	for level, count := range want {
		if summary.RiskDistribution[level] != count {
			t.Errorf("distribution[%s] = %d, want %d", level, summary.RiskDistribution[level], count)
		}
	}
}

func TestSummarizeEmptyBatch(t *testing.T) {
	summary := Summarize(batch.Build(nil), nil)
	if summary.AverageRiskScore != 0 {
		t.Errorf("empty batch mean = %v, want 0", summary.AverageRiskScore)
	}
	if len(summary.AmountClusters) != 0 || len(summary.BehavioralAnomalies) != 0 {
		t.Errorf("empty batch produced clusters or anomalies: %+v", summary)
	}
}

func TestAmountClusters(t *testing.T) {
	records := []domain.TransactionRecord{
		{ID: "T1", PayerID: "a", Amount: 9999, HistoricalFraud: true},
		{ID: "T2", PayerID: "b", Amount: 9999, HistoricalFraud: true},
		{ID: "T3", PayerID: "c", Amount: 9999, HistoricalFraud: false}, // not flagged
		{ID: "T4", PayerID: "d", Amount: 1111, HistoricalFraud: true}, // group of one
		{ID: "T5", PayerID: "e", Amount: 5555, HistoricalFraud: true},
		{ID: "T6", PayerID: "f", Amount: 5555, HistoricalFraud: true},
	}
	clusters := amountClusters(batch.Build(records))

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %+v", clusters)
	}
	if clusters[0].Amount != 9999 || clusters[0].Count != 2 {
		t.Errorf("unexpected first cluster: %+v", clusters[0])
	}
	if clusters[1].Amount != 5555 || clusters[1].Count != 2 {
		t.Errorf("unexpected second cluster: %+v", clusters[1])
	}
}

func TestBehavioralAnomalies(t *testing.T) {
	var records []domain.TransactionRecord
	addPayer := func(vpa string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, domain.TransactionRecord{
				ID: fmt.Sprintf("%s-%d", vpa, i), PayerID: vpa, BeneficiaryID: "x@upi",
			})
		}
	}
	addPayer("p30@upi", 30)
	addPayer("p12@upi", 12)
	addPayer("p15@upi", 15)
	addPayer("p11@upi", 11)
	addPayer("quiet@upi", 5)

	anomalies := behavioralAnomalies(batch.Build(records))

	if len(anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %+v", anomalies)
	}
	if anomalies[0].VPA != "p30@upi" || anomalies[1].VPA != "p15@upi" || anomalies[2].VPA != "p12@upi" {
		t.Errorf("anomalies not ordered by frequency: %+v", anomalies)
	}
	if anomalies[0].AnomalyScore != 100 {
		t.Errorf("30 records should cap the anomaly score at 100, got %v", anomalies[0].AnomalyScore)
	}
	if anomalies[2].AnomalyScore != 60 {
		t.Errorf("12 records should score 60, got %v", anomalies[2].AnomalyScore)
	}
}
