// Package rerr defines the Rule Engine's error taxonomy (spec.md §7):
// typed errors carrying structured fields for errors.As inspection,
// following the same Error()/Unwrap() shape as the teacher's deployment
// error types.
package rerr

import "fmt"

// UnknownNodeError is raised by the factory or parser when a node_name has
// no registered NodeSpec.
type UnknownNodeError struct {
	NodeName string
	Path     string // slash-separated, indexed path to the offending node (e.g. "ADD/1:X")
}

func (e *UnknownNodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unknown node %q at %s", e.NodeName, e.Path)
	}
	return fmt.Sprintf("unknown node %q", e.NodeName)
}

// DuplicateNodeError is raised by Registry.Register when node_name is
// already taken.
type DuplicateNodeError struct {
	NodeName string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already registered", e.NodeName)
}

// ArityMismatchError is raised by create_node when len(children) doesn't
// match the spec's declared args_type.
type ArityMismatchError struct {
	NodeName string
	Want     int
	Got      int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("node %q expects %d children, got %d", e.NodeName, e.Want, e.Got)
}

// TypeMismatchError is raised by create_node when a child's return_type is
// not assignable to the declared slot type.
type TypeMismatchError struct {
	NodeName string
	Index    int
	Want     string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("node %q child %d: type %s not assignable to %s", e.NodeName, e.Index, e.Got, e.Want)
}

// EvaluationFailure is recorded per-rule by the Rules Orchestrator and never
// propagates beyond one rule (spec.md §4.4, §7).
type EvaluationFailure struct {
	RuleID       string
	PathToNode   string
	Cause        error
}

func (e *EvaluationFailure) Error() string {
	return fmt.Sprintf("rule %q evaluation failed at %s: %v", e.RuleID, e.PathToNode, e.Cause)
}

func (e *EvaluationFailure) Unwrap() error {
	return e.Cause
}

// RuleNotFoundError is fatal to a direct get(rule_id) call.
type RuleNotFoundError struct {
	RuleID string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule %q not found", e.RuleID)
}

// RepositoryUnavailableError bubbles up to the Advisor unchanged.
type RepositoryUnavailableError struct {
	Err error
}

func (e *RepositoryUnavailableError) Error() string {
	return fmt.Sprintf("rule repository unavailable: %v", e.Err)
}

func (e *RepositoryUnavailableError) Unwrap() error {
	return e.Err
}

// AnalysisReportUnavailableError is fatal to the Advisor request; the core
// never falls back to stale data.
type AnalysisReportUnavailableError struct {
	Ticker string
	Err    error
}

func (e *AnalysisReportUnavailableError) Error() string {
	return fmt.Sprintf("analysis report unavailable for %q: %v", e.Ticker, e.Err)
}

func (e *AnalysisReportUnavailableError) Unwrap() error {
	return e.Err
}

// DeadlineExceededError is returned by the Advisor Orchestrator when a
// request's evaluation.deadline_ms elapses before any purpose's
// orchestrator run has returned (spec.md §5, P9). Once at least one has
// returned, the Advisor returns a report marked Incomplete instead; it
// does not check that every purpose completed at least one rule.
type DeadlineExceededError struct {
	DeadlineMS int
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("advisor request exceeded deadline of %dms", e.DeadlineMS)
}
