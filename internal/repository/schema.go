package repository

// Schema definitions for FraudShield persistence.
// Compatible with both SQLite and PostgreSQL.

const schemaScreeningRules = `
CREATE TABLE IF NOT EXISTS screening_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    reason TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_screening_rules_enabled ON screening_rules(enabled);
`

const schemaOverrides = `
CREATE TABLE IF NOT EXISTS overrides (
    transaction_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    updated_by TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaAuditEvents = `
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    action TEXT NOT NULL,
    transaction_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_created ON audit_events(created_at);
CREATE INDEX IF NOT EXISTS idx_audit_events_tx ON audit_events(transaction_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaScreeningRules,
		schemaOverrides,
		schemaAuditEvents,
	}
}
