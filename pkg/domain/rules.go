package domain

import (
	"context"
	"fmt"
)

// RuleView provides read-only access to one inventory snapshot for rule
// evaluation.
type RuleView interface {
	ListItems() []Item
	ListMovements() []Movement
	FindItem(id string) (Item, bool)
	// RoomMembers returns the IDs indexed under room in key order.
	RoomMembers(room Location) []string
}

// Rule defines an evaluation over an inventory snapshot.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock marks state that breaks a stored invariant.
	SeverityBlock Severity = "block"
	// SeverityWarn marks state that is tolerated but suspicious.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Entity   string   `json:"entity"`
	EntityID string   `json:"entityId"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := 0
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			blocking++
		}
	}
	return fmt.Sprintf("inventory inconsistent: %d blocking violations", blocking)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in registration order.
func (e *RulesEngine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}
