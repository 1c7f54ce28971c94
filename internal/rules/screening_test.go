package rules

import (
	"testing"

	"github.com/technoKC/fraud-shield/internal/domain"
)

func screeningRule(id, expr string) domain.ScreeningRule {
	return domain.ScreeningRule{
		ID:         id,
		Name:       "rule " + id,
		Expression: expr,
		Reason:     "matched " + id,
		Enabled:    true,
	}
}

func TestScreeningEngineCreation(t *testing.T) {
	engine, err := NewScreeningEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestScreeningLoadAndEvaluate(t *testing.T) {
	engine, _ := NewScreeningEngine()
	defer engine.Close()

	if err := engine.LoadRule(screeningRule("r1", `amount > 50000.0`)); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if err := engine.LoadRule(screeningRule("r2", `device_id == "" && !historical_fraud`)); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	hits := engine.Evaluate(domain.TransactionRecord{Amount: 75000, DeviceID: ""})
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	if hits[0].RuleID != "r1" || hits[1].RuleID != "r2" {
		t.Errorf("hits not ordered by rule id: %+v", hits)
	}

	hits = engine.Evaluate(domain.TransactionRecord{Amount: 100, DeviceID: "dev-1"})
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestScreeningRejectsNonBoolean(t *testing.T) {
	engine, _ := NewScreeningEngine()
	defer engine.Close()

	if err := engine.LoadRule(screeningRule("bad", `amount + 1.0`)); err == nil {
		t.Fatal("expected error for non-boolean expression")
	}
	if err := engine.ValidateRule(screeningRule("syntax", `amount >`)); err == nil {
		t.Fatal("expected error for invalid syntax")
	}
}

func TestScreeningReload(t *testing.T) {
	engine, _ := NewScreeningEngine()
	defer engine.Close()

	if err := engine.LoadRule(screeningRule("old", `true`)); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	disabled := screeningRule("off", `true`)
	disabled.Enabled = false
	if err := engine.Reload([]domain.ScreeningRule{
		screeningRule("new", `status_code != "SUCCESS"`),
		disabled,
	}); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule after reload, got %d", engine.RulesCount())
	}
	hits := engine.Evaluate(domain.TransactionRecord{StatusCode: "FAILED"})
	if len(hits) != 1 || hits[0].RuleID != "new" {
		t.Errorf("unexpected hits after reload: %+v", hits)
	}
}

func TestScreeningReloadKeepsOldSetOnError(t *testing.T) {
	engine, _ := NewScreeningEngine()
	defer engine.Close()

	if err := engine.LoadRule(screeningRule("keep", `true`)); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if err := engine.Reload([]domain.ScreeningRule{screeningRule("bad", `amount >`)}); err == nil {
		t.Fatal("expected reload error")
	}
	if engine.RulesCount() != 1 {
		t.Errorf("rule set should be unchanged after failed reload, got %d", engine.RulesCount())
	}
}
