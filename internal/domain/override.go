package domain

import (
	"context"
	"fmt"
	"time"
)

// Status is an analyst-assigned transaction status. It replaces free-form
// string dispatch with an enumerated type parsed exhaustively.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusBlocked  Status = "blocked"
	StatusFlagged  Status = "flagged"
)

// ParseStatus validates a raw status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusVerified, StatusBlocked, StatusFlagged:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Override is a manual status assignment for one transaction id.
type Override struct {
	TransactionID string    `json:"transaction_id"`
	Status        Status    `json:"status"`
	UpdatedBy     string    `json:"updated_by"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OverrideStore holds manual transaction statuses. It is injected into the
// presentation layer only; core scoring never reads it. Set replaces
// unconditionally; CompareAndSwap succeeds only when the current status
// equals expected (StatusPending matches an absent entry), giving concurrent
// writers a defined contract.
type OverrideStore interface {
	Get(ctx context.Context, txID string) (*Override, error)
	Set(ctx context.Context, ov Override) error
	CompareAndSwap(ctx context.Context, txID string, expected Status, ov Override) (bool, error)
	List(ctx context.Context) ([]Override, error)
	Close() error
}
