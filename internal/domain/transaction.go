// Package domain defines the core types and interfaces for FraudShield.
package domain

import (
	"time"
)

// TransactionRecord is one row of an uploaded batch. Optional fields that are
// missing or unparsable in the source data degrade to zero values; only the
// presence of the required columns is enforced, at decode time.
type TransactionRecord struct {
	ID              string  `json:"transaction_id"`
	Timestamp       string  `json:"timestamp"`
	Amount          float64 `json:"amount"`
	PayerID         string  `json:"payer_vpa"`
	BeneficiaryID   string  `json:"beneficiary_vpa"`
	DeviceID        string  `json:"device_id"`
	IPAddress       string  `json:"ip_address"`
	StatusCode      string  `json:"status_code"`
	ResponseCode    string  `json:"response_code"`
	HistoricalFraud bool    `json:"is_fraud"`
}

// timestampLayouts are tried in order when parsing record timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseTimestamp parses the record's raw timestamp string. The boolean result
// reports whether parsing succeeded; callers decide how to treat failure
// (the rule scorer skips, the composite scorer penalizes).
func (r TransactionRecord) ParseTimestamp() (time.Time, bool) {
	if r.Timestamp == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, r.Timestamp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
