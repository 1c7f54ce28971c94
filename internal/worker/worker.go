// Package worker consumes analysis events asynchronously.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/technoKC/fraud-shield/internal/domain"
	"github.com/technoKC/fraud-shield/internal/monitor"
)

// Alert is the payload published for each critical record in a batch.
type Alert struct {
	ReportID       string           `json:"report_id"`
	TransactionID  string           `json:"transaction_id"`
	PayerVPA       string           `json:"payer_vpa"`
	BeneficiaryVPA string           `json:"beneficiary_vpa"`
	Amount         float64          `json:"amount"`
	RiskLevel      domain.RiskLevel `json:"risk_level"`
	RuleScore      int              `json:"rule_score"`
	Explanation    string           `json:"explanation"`
}

// Worker subscribes to analyzed batches, feeds the behavior monitor, and
// republishes per-record alerts for critical classifications.
type Worker struct {
	bus     domain.EventBus
	monitor *monitor.Monitor

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates an async worker. The monitor is optional.
func NewWorker(bus domain.EventBus, m *monitor.Monitor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		monitor: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins consuming analyzed-batch events.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicBatchAnalyzed, w.handleBatch)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started", "topic", domain.TopicBatchAnalyzed)
	return nil
}

// handleBatch processes one analyzed batch report.
func (w *Worker) handleBatch(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var report domain.BatchReport
	if err := json.Unmarshal(msg.Payload, &report); err != nil {
		slog.Error("failed to parse batch report",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	alerts := 0
	for _, entry := range report.Results {
		tx := entry.Transaction

		if w.monitor != nil {
			ts, ok := domain.TransactionRecord{Timestamp: tx.Timestamp}.ParseTimestamp()
			if !ok {
				ts = time.Now().UTC()
			}
			if _, err := w.monitor.AnalyzeTransaction(ctx, tx.PayerVPA, tx.Amount, ts); err != nil {
				slog.Error("failed to track transaction pattern",
					"tx_id", tx.TransactionID,
					"error", err,
				)
			}
		}

		if entry.RuleClassification.Risk != domain.RiskCritical {
			continue
		}

		alert := Alert{
			ReportID:       report.ReportID,
			TransactionID:  tx.TransactionID,
			PayerVPA:       tx.PayerVPA,
			BeneficiaryVPA: tx.BeneficiaryVPA,
			Amount:         tx.Amount,
			RiskLevel:      entry.RuleClassification.Risk,
			RuleScore:      tx.RuleScore,
			Explanation:    tx.Explanation,
		}

		payload, err := json.Marshal(alert)
		if err != nil {
			slog.Error("failed to marshal alert",
				"tx_id", tx.TransactionID,
				"error", err,
			)
			continue
		}

		if err := w.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"tx_id", tx.TransactionID,
				"error", err,
			)
			continue
		}
		alerts++
	}

	slog.Info("batch processed",
		"report_id", report.ReportID,
		"records", len(report.Results),
		"alerts", alerts,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
