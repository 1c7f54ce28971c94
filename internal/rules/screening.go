package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// ScreeningEngine evaluates analyst-defined CEL expressions against records.
// A matching rule attaches a screening hit to the result entry; hits never
// change the fixed rule or composite scores.
type ScreeningEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledScreeningRule
}

type compiledScreeningRule struct {
	rule    domain.ScreeningRule
	program cel.Program
}

// NewScreeningEngine builds the CEL environment exposing the record fields.
func NewScreeningEngine() (*ScreeningEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("payer_id", cel.StringType),
		cel.Variable("beneficiary_id", cel.StringType),
		cel.Variable("device_id", cel.StringType),
		cel.Variable("ip_address", cel.StringType),
		cel.Variable("status_code", cel.StringType),
		cel.Variable("response_code", cel.StringType),
		cel.Variable("historical_fraud", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ScreeningEngine{
		env:      env,
		compiled: make(map[string]*compiledScreeningRule),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *ScreeningEngine) ValidateRule(rule domain.ScreeningRule) error {
	_, err := e.compile(rule)
	return err
}

// LoadRule compiles and loads a single rule, replacing any rule with the
// same id.
func (e *ScreeningEngine) LoadRule(rule domain.ScreeningRule) error {
	compiled, err := e.compile(rule)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled[rule.ID] = compiled
	return nil
}

// Reload replaces the full rule set atomically. Disabled rules are skipped.
func (e *ScreeningEngine) Reload(rules []domain.ScreeningRule) error {
	next := make(map[string]*compiledScreeningRule, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		compiled, err := e.compile(rule)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		next[rule.ID] = compiled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = next
	return nil
}

// RemoveRule unloads a rule by id.
func (e *ScreeningEngine) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.compiled, id)
}

// RulesCount reports the number of loaded rules.
func (e *ScreeningEngine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Close releases the loaded rules.
func (e *ScreeningEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*compiledScreeningRule)
}

// Evaluate runs every loaded rule against one record and returns the hits,
// ordered by rule id for stable output. Evaluation errors and non-boolean
// results count as no match.
func (e *ScreeningEngine) Evaluate(rec domain.TransactionRecord) []domain.ScreeningHit {
	e.mu.RLock()
	rules := make([]*compiledScreeningRule, 0, len(e.compiled))
	for _, rule := range e.compiled {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := map[string]any{
		"amount":           rec.Amount,
		"payer_id":         rec.PayerID,
		"beneficiary_id":   rec.BeneficiaryID,
		"device_id":        rec.DeviceID,
		"ip_address":       rec.IPAddress,
		"status_code":      rec.StatusCode,
		"response_code":    rec.ResponseCode,
		"historical_fraud": rec.HistoricalFraud,
	}

	var hits []domain.ScreeningHit
	for _, rule := range rules {
		out, _, err := rule.program.Eval(activation)
		if err != nil {
			continue
		}
		if out == types.True {
			hits = append(hits, domain.ScreeningHit{
				RuleID: rule.rule.ID,
				Name:   rule.rule.Name,
				Reason: rule.rule.Reason,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].RuleID < hits[j].RuleID })
	return hits
}

func (e *ScreeningEngine) compile(rule domain.ScreeningRule) (*compiledScreeningRule, error) {
	if rule.Expression == "" {
		return nil, fmt.Errorf("rule expression is required")
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must evaluate to a boolean, got %s", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	return &compiledScreeningRule{rule: rule, program: program}, nil
}
