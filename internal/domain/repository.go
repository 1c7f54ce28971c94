package domain

import (
	"context"
	"time"
)

// Repository persists configuration and analyst state: screening rules,
// manual overrides, and an audit trail of override actions. Batch scores are
// deliberately not persisted; every analysis is recomputed from its input.
type Repository interface {
	// Screening rule operations
	SaveScreeningRule(ctx context.Context, rule *ScreeningRule) error
	GetScreeningRule(ctx context.Context, ruleID string) (*ScreeningRule, error)
	ListScreeningRules(ctx context.Context) ([]*ScreeningRule, error)
	DeleteScreeningRule(ctx context.Context, ruleID string) error

	// Override operations
	SaveOverride(ctx context.Context, ov *Override) error
	GetOverride(ctx context.Context, txID string) (*Override, error)
	ListOverrides(ctx context.Context) ([]*Override, error)

	// Audit trail
	SaveAuditEvent(ctx context.Context, ev *AuditEvent) error
	ListAuditEvents(ctx context.Context, since time.Time) ([]*AuditEvent, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AuditEvent records one analyst action against a transaction.
type AuditEvent struct {
	ID            string    `json:"id"`
	Actor         string    `json:"actor"`
	Action        string    `json:"action"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
