// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/technoKC/fraud-shield/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveScreeningRule stores or updates a screening rule.
func (r *SQLRepository) SaveScreeningRule(ctx context.Context, rule *domain.ScreeningRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO screening_rules (
			id, name, description, expression, reason, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			reason = excluded.reason,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description,
		rule.Expression, rule.Reason, enabled,
		now, now,
	)
	return err
}

// GetScreeningRule retrieves a screening rule by id.
func (r *SQLRepository) GetScreeningRule(ctx context.Context, ruleID string) (*domain.ScreeningRule, error) {
	query := `
		SELECT id, name, description, expression, reason, enabled
		FROM screening_rules
		WHERE id = ?
	`

	var rule domain.ScreeningRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), ruleID).Scan(
		&rule.ID, &rule.Name, &rule.Description,
		&rule.Expression, &rule.Reason, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListScreeningRules retrieves all screening rules ordered by name.
func (r *SQLRepository) ListScreeningRules(ctx context.Context) ([]*domain.ScreeningRule, error) {
	query := `
		SELECT id, name, description, expression, reason, enabled
		FROM screening_rules
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ScreeningRule
	for rows.Next() {
		var rule domain.ScreeningRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description,
			&rule.Expression, &rule.Reason, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteScreeningRule removes a screening rule.
func (r *SQLRepository) DeleteScreeningRule(ctx context.Context, ruleID string) error {
	query := `DELETE FROM screening_rules WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveOverride stores or updates a manual override.
func (r *SQLRepository) SaveOverride(ctx context.Context, ov *domain.Override) error {
	if ov == nil || ov.TransactionID == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO overrides (transaction_id, status, updated_by, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			status = excluded.status,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ov.TransactionID, string(ov.Status), ov.UpdatedBy, ov.UpdatedAt.UTC(),
	)
	return err
}

// GetOverride retrieves an override by transaction id.
func (r *SQLRepository) GetOverride(ctx context.Context, txID string) (*domain.Override, error) {
	query := `
		SELECT transaction_id, status, updated_by, updated_at
		FROM overrides
		WHERE transaction_id = ?
	`

	var ov domain.Override
	var status string

	err := r.db.QueryRowContext(ctx, r.rebind(query), txID).Scan(
		&ov.TransactionID, &status, &ov.UpdatedBy, &ov.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("corrupt override for %s: %w", txID, err)
	}
	ov.Status = parsed

	return &ov, nil
}

// ListOverrides retrieves all overrides ordered by transaction id.
func (r *SQLRepository) ListOverrides(ctx context.Context) ([]*domain.Override, error) {
	query := `
		SELECT transaction_id, status, updated_by, updated_at
		FROM overrides
		ORDER BY transaction_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []*domain.Override
	for rows.Next() {
		var ov domain.Override
		var status string

		if err := rows.Scan(&ov.TransactionID, &status, &ov.UpdatedBy, &ov.UpdatedAt); err != nil {
			return nil, err
		}

		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("corrupt override for %s: %w", ov.TransactionID, err)
		}
		ov.Status = parsed

		overrides = append(overrides, &ov)
	}

	return overrides, rows.Err()
}

// SaveAuditEvent appends one audit record.
func (r *SQLRepository) SaveAuditEvent(ctx context.Context, ev *domain.AuditEvent) error {
	if ev == nil || ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_events (id, actor, action, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ev.ID, ev.Actor, ev.Action, ev.TransactionID, ev.CreatedAt.UTC(),
	)
	return err
}

// ListAuditEvents retrieves audit records at or after the given time.
func (r *SQLRepository) ListAuditEvents(ctx context.Context, since time.Time) ([]*domain.AuditEvent, error) {
	query := `
		SELECT id, actor, action, transaction_id, created_at
		FROM audit_events
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.Actor, &ev.Action, &ev.TransactionID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
