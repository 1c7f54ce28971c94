// Benchmark tool for testing FraudShield against labeled UPI transaction data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/transactions.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled UPI transaction data (with IS_FRAUD column)
//   2. Uploads it to FraudShield in batches via POST /detect
//   3. Compares FraudShield's labels with the actual fraud labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// BatchReport is the subset of the /detect response the benchmark needs.
type BatchReport struct {
	ReportID          string `json:"report_id"`
	TotalTransactions int    `json:"total_transactions"`
	FraudDetected     int    `json:"fraud_detected"`
	Results           []struct {
		Transaction struct {
			TransactionID string  `json:"transaction_id"`
			Amount        float64 `json:"amount"`
		} `json:"transaction"`
		RuleClassification struct {
			Label string  `json:"label"`
			Risk  string  `json:"risk"`
		} `json:"rule_classification"`
	} `json:"results"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Labeled fraud, predicted Fraud
	FalsePositives int64 // Labeled legitimate, predicted Fraud
	TrueNegatives  int64 // Labeled legitimate, predicted Legitimate
	FalseNegatives int64 // Labeled fraud, predicted Legitimate (missed fraud!)

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to labeled UPI transaction CSV")
	baseURL := flag.String("url", "http://localhost:8080", "FraudShield base URL")
	batchSize := flag.Int("batch", 1000, "Rows per uploaded batch")
	limit := flag.Int("limit", 0, "Maximum transactions to process (0 = all)")
	verbose := flag.Bool("verbose", false, "Print each mismatched transaction")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/transactions.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        FRAUDSHIELD BENCHMARK - Labeled UPI Detection          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Server URL:  %s\n", *baseURL)
	fmt.Printf("Batch Size:  %d\n", *batchSize)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: FraudShield not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure FraudShield is running:")
		fmt.Println("  go run cmd/fraudshield/main.go")
		os.Exit(1)
	}
	fmt.Println("FraudShield is healthy")

	fmt.Printf("\nReading transactions from %s...\n", *csvPath)
	header, rows, labels, err := readLabeledCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d transactions\n", len(rows))

	fraudCount := 0
	for _, fraud := range labels {
		if fraud {
			fraudCount++
		}
	}
	fmt.Printf("  - Fraud:     %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(rows)))
	fmt.Printf("  - Non-fraud: %d (%.2f%%)\n", len(rows)-fraudCount, 100*float64(len(rows)-fraudCount)/float64(len(rows)))

	fmt.Printf("\nRunning benchmark in batches of %d...\n", *batchSize)
	startTime := time.Now()
	metrics := runBenchmark(*baseURL, header, rows, labels, *batchSize, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readLabeledCSV returns the header, data rows, and per-row fraud labels.
func readLabeledCSV(path string, limit int) ([]string, [][]string, map[string]bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	idCol, fraudCol := -1, -1
	for i, col := range header {
		switch strings.ToUpper(strings.TrimSpace(col)) {
		case "TRANSACTION_ID":
			idCol = i
		case "IS_FRAUD":
			fraudCol = i
		}
	}
	if idCol < 0 || fraudCol < 0 {
		return nil, nil, nil, fmt.Errorf("CSV must contain TRANSACTION_ID and IS_FRAUD columns")
	}

	var rows [][]string
	labels := make(map[string]bool)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		if idCol >= len(record) || fraudCol >= len(record) {
			continue
		}

		flag := strings.ToLower(strings.TrimSpace(record[fraudCol]))
		labels[record[idCol]] = flag == "1" || flag == "true" || flag == "yes" || flag == "y"
		rows = append(rows, record)

		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return header, rows, labels, nil
}

func runBenchmark(baseURL string, header []string, rows [][]string, labels map[string]bool, batchSize int, verbose bool) *Metrics {
	metrics := &Metrics{}
	client := &http.Client{Timeout: 120 * time.Second}

	for offset := 0; offset < len(rows); offset += batchSize {
		end := offset + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		start := time.Now()
		report, err := detectBatch(client, baseURL, header, rows[offset:end])
		metrics.ProcessingTimeMs += time.Since(start).Milliseconds()

		if err != nil {
			metrics.TotalErrors += int64(end - offset)
			fmt.Printf("ERROR: batch starting at row %d failed: %v\n", offset, err)
			continue
		}

		for _, entry := range report.Results {
			metrics.TotalProcessed++

			actual := labels[entry.Transaction.TransactionID]
			if actual {
				metrics.TotalFraud++
			} else {
				metrics.TotalNonFraud++
			}

			predicted := entry.RuleClassification.Label == "Fraud"

			switch {
			case predicted && actual:
				metrics.TruePositives++
			case predicted && !actual:
				metrics.FalsePositives++
			case !predicted && !actual:
				metrics.TrueNegatives++
			default:
				metrics.FalseNegatives++
			}

			if verbose && predicted != actual {
				fmt.Printf("MISS %-12s | Amount: %12.2f | Fraud: %-5v | Predicted: %s (%s)\n",
					entry.Transaction.TransactionID,
					entry.Transaction.Amount,
					actual,
					entry.RuleClassification.Label,
					entry.RuleClassification.Risk,
				)
			}
		}
	}

	return metrics
}

// detectBatch uploads one CSV slice to /detect and decodes the report.
func detectBatch(client *http.Client, baseURL string, header []string, rows [][]string) (*BatchReport, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	part, err := mw.CreateFormFile("file", "batch.csv")
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(part)
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	if err := cw.WriteAll(rows); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/detect", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var report BatchReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, err
	}

	return &report, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Fraud:      %d\n", m.TotalFraud)
	fmt.Printf("   Total Non-Fraud:  %d\n", m.TotalNonFraud)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                   Fraud       Legit")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  F  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NF  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\nDETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flagged, how many were actual fraud)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of fraud, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	fmt.Printf("\nDETECTION ANALYSIS\n")
	if m.TotalFraud > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalFraud) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalFraud) * 100
		fmt.Printf("   Fraud Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalFraud, detectionRate)
		fmt.Printf("   Fraud Missed:      %d / %d (%.2f%%)\n", m.FalseNegatives, m.TotalFraud, missRate)
	}
	if m.TotalNonFraud > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalNonFraud) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalNonFraud, falseAlarmRate)
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms/tx\n", avgMs)
		fmt.Printf("   Throughput:       %.2f tx/sec\n", tps)
	}

	fmt.Println()
}
