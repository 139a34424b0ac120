// Package rules holds the deterministic decision logic: the CEL-based
// regulatory pre-check and the disposition rule table that combines
// model outputs with derived flags.
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/falcon-fin/falcon/internal/domain"
)

// RegulatoryRule is one hard channel limit, expressed as a CEL
// predicate over the channel and amount.
type RegulatoryRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
}

// DefaultRegulatoryRules returns the RBI channel limits. Order matters:
// the first matching rule wins.
func DefaultRegulatoryRules() []RegulatoryRule {
	return []RegulatoryRule{
		{
			Name:       "rtgs_minimum",
			Expression: `channel == "RTGS" && amount < 200000.0`,
			Reason:     "RTGS below minimum",
		},
		{
			Name:       "imps_maximum",
			Expression: `channel == "IMPS" && amount > 500000.0`,
			Reason:     "IMPS above maximum",
		},
		{
			Name:       "upi_maximum",
			Expression: `channel == "UPI" && amount > 100000.0`,
			Reason:     "UPI above maximum",
		},
	}
}

type compiledRegulatoryRule struct {
	rule    RegulatoryRule
	program cel.Program
}

// RegulatoryChecker evaluates the channel limits before any scoring
// runs. Rules are compiled once at construction and evaluated in
// declaration order.
type RegulatoryChecker struct {
	compiled []compiledRegulatoryRule
}

// NewRegulatoryChecker compiles a rule set. Every expression must
// evaluate to bool.
func NewRegulatoryChecker(ruleSet []RegulatoryRule) (*RegulatoryChecker, error) {
	env, err := cel.NewEnv(
		cel.Variable("channel", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	compiled := make([]compiledRegulatoryRule, 0, len(ruleSet))
	for _, rule := range ruleSet {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", rule.Name, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.Name, ast.OutputType())
		}

		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.Name, err)
		}

		compiled = append(compiled, compiledRegulatoryRule{rule: rule, program: program})
	}

	return &RegulatoryChecker{compiled: compiled}, nil
}

// Check evaluates the limits against a channel and amount. It returns
// the violated rule's reason, or "" when every rule passes. The first
// matching rule short-circuits the rest.
func (c *RegulatoryChecker) Check(channel string, amount float64) (string, error) {
	activation := map[string]any{
		"channel": channel,
		"amount":  amount,
	}

	for _, cr := range c.compiled {
		out, _, err := cr.program.Eval(activation)
		if err != nil {
			return "", fmt.Errorf("rule %s evaluation: %w", cr.rule.Name, err)
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			return cr.rule.Reason, nil
		}
	}
	return "", nil
}

// ViolationResult builds the fixed decision payload for a violated
// channel limit. Violations never reach the models: the classifier
// verdict, anomaly score and risk score are pinned.
func ViolationResult(txID, reason string) *domain.DecisionResult {
	return &domain.DecisionResult{
		TxID:            txID,
		RFPrediction:    1,
		AnomalyScore:    0.0,
		RiskScore:       100.0,
		RiskLevel:       domain.RiskHigh,
		FinalDecision:   domain.DispositionBlock,
		ViolationReason: reason,
	}
}
