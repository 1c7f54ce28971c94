package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/rules"
)

func testRecord(id string) domain.TransactionRecord {
	return domain.TransactionRecord{
		ID:            id,
		Timestamp:     "2024-01-17 14:30:00",
		Amount:        2537.42,
		PayerID:       id + "-sender@okhdfc",
		BeneficiaryID: id + "-shop@okicici",
		DeviceID:      "device-1",
		IPAddress:     "192.168.1.10",
		StatusCode:    "SUCCESS",
		ResponseCode:  "00",
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	suspicious := testRecord("T1")
	suspicious.Amount = 9999
	suspicious.PayerID = "bonus@upi"

	flagged := testRecord("T2")
	flagged.Amount = 500
	flagged.HistoricalFraud = true

	clean := testRecord("T3")

	e := New(domain.EngineConfig{MaxWorkers: 4}, nil)
	report, err := e.Analyze(context.Background(),
		[]domain.TransactionRecord{suspicious, flagged, clean})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.ReportID == "" {
		t.Error("report id not set")
	}
	if report.TotalTransactions != 3 {
		t.Errorf("total = %d, want 3", report.TotalTransactions)
	}

	// T1: keyword 15 + high-risk amount 20 + below-threshold 15 = 50.
	r1 := report.Results[0]
	if r1.Transaction.RuleScore != 50 {
		t.Errorf("T1 rule score = %d, want 50", r1.Transaction.RuleScore)
	}
	if r1.Transaction.RiskLevel != domain.RiskMedium {
		t.Errorf("T1 level = %s, want Medium", r1.Transaction.RiskLevel)
	}

	// T2: flagged, floor at 80.
	r2 := report.Results[1]
	if r2.Transaction.RuleScore != 80 || r2.Transaction.RiskLevel != domain.RiskCritical {
		t.Errorf("T2 = score %d level %s, want 80 Critical", r2.Transaction.RuleScore, r2.Transaction.RiskLevel)
	}
	if r2.RuleClassification.Label != domain.LabelFraud {
		t.Error("T2 should be labeled Fraud")
	}

	// T3: clean.
	r3 := report.Results[2]
	if r3.Transaction.RuleScore != 0 || r3.RuleClassification.Label != domain.LabelLegitimate {
		t.Errorf("T3 = %+v, want clean", r3.Transaction)
	}

	if report.FraudDetected != 1 {
		t.Errorf("fraud detected = %d, want 1 (only the flagged record)", report.FraudDetected)
	}
	if len(report.Graph.Nodes) != 6 {
		t.Errorf("graph nodes = %d, want 6", len(report.Graph.Nodes))
	}
}

func TestAnalyzeAlignmentUnderParallelism(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 0; i < 200; i++ {
		rec := testRecord(fmt.Sprintf("T%03d", i))
		rec.Amount = float64(i + 1)
		records = append(records, rec)
	}

	e := New(domain.EngineConfig{MaxWorkers: 8}, nil)
	report, err := e.Analyze(context.Background(), records)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	for i, entry := range report.Results {
		if entry.Transaction.TransactionID != records[i].ID {
			t.Fatalf("result %d holds %s, positional join misaligned", i, entry.Transaction.TransactionID)
		}
		if entry.Transaction.Amount != records[i].Amount {
			t.Fatalf("result %d amount misaligned", i)
		}
	}
}

func TestAnalyzeEmptyBatch(t *testing.T) {
	e := New(domain.EngineConfig{}, nil)
	report, err := e.Analyze(context.Background(), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.TotalTransactions != 0 || report.PortfolioSummary.FraudRate != 0 {
		t.Errorf("empty report = %+v", report)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(domain.EngineConfig{}, nil)
	if _, err := e.Analyze(ctx, []domain.TransactionRecord{testRecord("T1")}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestAnalyzeScreeningHits(t *testing.T) {
	screener, err := rules.NewScreeningEngine()
	if err != nil {
		t.Fatalf("failed to create screening engine: %v", err)
	}
	defer screener.Close()
	if err := screener.LoadRule(domain.ScreeningRule{
		ID:         "big",
		Name:       "large amount",
		Expression: `amount > 5000.0`,
		Enabled:    true,
	}); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	big := testRecord("T1")
	big.Amount = 7500
	small := testRecord("T2")

	e := New(domain.EngineConfig{}, screener)
	report, err := e.Analyze(context.Background(), []domain.TransactionRecord{big, small})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(report.Results[0].ScreeningHits) != 1 {
		t.Errorf("expected screening hit on T1: %+v", report.Results[0].ScreeningHits)
	}
	if len(report.Results[1].ScreeningHits) != 0 {
		t.Errorf("unexpected hit on T2: %+v", report.Results[1].ScreeningHits)
	}
	// Hits never change scores.
	if report.Results[0].Transaction.RuleScore != 0 {
		t.Errorf("screening hit altered the rule score: %d", report.Results[0].Transaction.RuleScore)
	}
}
