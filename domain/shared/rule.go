package shared

import "fmt"

// BusinessRule is a stateless predicate over domain state.
// Aggregates enforce their invariants by passing rules to CheckRule.
type BusinessRule interface {
	IsBroken() bool
	Message() string
}

// CheckRule returns a *RuleViolationError when rule is broken and nil otherwise
func CheckRule(rule BusinessRule) error {
	if !rule.IsBroken() {
		return nil
	}
	return &RuleViolationError{
		Rule:    rule,
		Details: rule.Message(),
		stack:   CaptureStack(3),
	}
}

// RuleViolationError carries the rule that failed so callers can tell which invariant broke
type RuleViolationError struct {
	Rule    BusinessRule
	Details string
	stack   []uintptr
}

func (e *RuleViolationError) Error() string {
	return e.Details
}

func (e *RuleViolationError) Unwrap() error { return ErrRuleViolation }

func (e *RuleViolationError) Stack() []string { return FormatStack(e.stack) }

// Describe renders "{rule type}: {message}"
func (e *RuleViolationError) Describe() string {
	return fmt.Sprintf("%s: %s", TypeName(e.Rule), e.Details)
}

var _ Stacker = (*RuleViolationError)(nil)
