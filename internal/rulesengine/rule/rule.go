// Package rule implements Rule (spec.md §3.4, §4.4): a named, versioned
// wrapper around a tree root exposing Execute and a derived Purpose.
package rule

import (
	"fmt"
	"math"

	"github.com/aristath/arduino-trader/internal/rulesengine/node"
	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
)

// Status is rule_status (spec.md §3.4).
type Status string

const (
	StatusReady      Status = "READY"
	StatusEvolving   Status = "EVOLVING"
	StatusDeprecated Status = "DEPRECATED"
)

// Rule wraps a tree root with metadata; rules are never mutated in place —
// a new RuleID/Version pair is required for any change (spec.md §3.4).
type Rule struct {
	RuleID      string
	Name        string
	Description string
	Version     int
	Status      Status
	CreatedAtTS int64
	Metrics     map[string]any // opaque historical performance snapshot
	Root        node.TreeNode
}

// New validates root.ReturnType() against the allowed purposes (Q3: a
// BOOLEAN-or-other-non-signal root is rejected at registration time
// rather than silently coerced) and returns a Rule.
func New(ruleID, name, description string, version int, status Status, createdAtTS int64, metrics map[string]any, root node.TreeNode) (*Rule, error) {
	if !semtype.IsPurpose(root.ReturnType()) {
		return nil, fmt.Errorf("rule %q: root return type %s is not a valid purpose (must be DECISION_SIGNAL, RISK_LEVEL or OPPORTUNITY_RATING)", ruleID, root.ReturnType())
	}
	return &Rule{
		RuleID:      ruleID,
		Name:        name,
		Description: description,
		Version:     version,
		Status:      status,
		CreatedAtTS: createdAtTS,
		Metrics:     metrics,
		Root:        root,
	}, nil
}

// Purpose is a derived getter equal to root.return_type (spec.md §4.4).
func (r *Rule) Purpose() semtype.Type {
	return r.Root.ReturnType()
}

// Execute recursively evaluates Root against report and always returns a
// finite float (spec.md §4.4). A misbehaving operator or exceeded tree
// depth surfaces as EvaluationFailure, which the Rules Orchestrator
// absorbs and records as evidence rather than propagating.
func (r *Rule) Execute(report node.Report) (float64, error) {
	score, err := r.Root.Evaluate(report, 0)
	if err != nil {
		return 0, &rerr.EvaluationFailure{RuleID: r.RuleID, PathToNode: "root", Cause: err}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &rerr.EvaluationFailure{RuleID: r.RuleID, PathToNode: "root", Cause: fmt.Errorf("non-finite result %v", score)}
	}
	return score, nil
}
