// Package batch materializes an uploaded transaction batch and the derived
// aggregates shared by every per-record evaluation.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// Required CSV columns. A file missing any of these is rejected before
// scoring begins; all other columns are optional and degrade to defaults.
var requiredColumns = []string{
	"TRANSACTION_ID",
	"TXN_TIMESTAMP",
	"AMOUNT",
	"PAYER_VPA",
	"BENEFICIARY_VPA",
}

// MissingColumnsError is the structural failure for an invalid upload.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// DecodeCSV parses an uploaded batch. The header row is matched
// case-insensitively; required columns must be present, optional field
// values that are absent or unparsable degrade to zero values.
func DecodeCSV(r io.Reader) ([]domain.TransactionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var records []domain.TransactionRecord
	for rowNum := 0; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		id := field("TRANSACTION_ID")
		if id == "" {
			id = fmt.Sprintf("TXN_%d", rowNum)
		}

		records = append(records, domain.TransactionRecord{
			ID:              id,
			Timestamp:       field("TXN_TIMESTAMP"),
			Amount:          parseAmount(field("AMOUNT")),
			PayerID:         field("PAYER_VPA"),
			BeneficiaryID:   field("BENEFICIARY_VPA"),
			DeviceID:        field("DEVICE_ID"),
			IPAddress:       field("IP_ADDRESS"),
			StatusCode:      field("TRN_STATUS"),
			ResponseCode:    field("RESPONSE_CODE"),
			HistoricalFraud: parseFlag(field("IS_FRAUD")),
		})
	}

	return records, nil
}

// parseAmount degrades to 0 on failure; amounts are never negative.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
