// Package analysis defines the Analysis Report (spec.md §6.1): a frozen,
// nested, read-only document that is the Rule Engine's single fact input.
// Ingestion, ML forecasting and indicator computation that produce this
// document are deliberately out of the core's scope (spec.md §1); this
// package only specifies the document's addressable shape and the
// path-accessor contract node.Report requires.
package analysis

import "strings"

// Report is a read-only, addressable Analysis Report for one ticker at one
// moment (spec.md §6.1). The zero value is an empty report: every path
// lookup returns (nil, false), exercising the Variable neutrality
// contract (spec.md P8) without a special case.
type Report struct {
	Ticker              string
	GeneratedAtUTC      string
	GeneratedTimestamp  int64
	fields              map[string]any
}

// New builds a Report from a flat path->value map, typically assembled by
// an external collaborator (see internal/analysis/stub for an illustrative
// one built from price series).
func New(ticker, generatedAtUTC string, generatedTimestamp int64, fields map[string]any) *Report {
	return &Report{
		Ticker:             ticker,
		GeneratedAtUTC:     generatedAtUTC,
		GeneratedTimestamp: generatedTimestamp,
		fields:             fields,
	}
}

// Get implements node.Report: it looks up a dotted path, e.g.
// "technical_report.daily_report.key_indicators.rsi_14". Paths are
// read-only and MAY be absent; absence is not an error (spec.md §6.1).
func (r *Report) Get(path string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	v, ok := r.fields[path]
	if ok {
		return v, true
	}
	// Fall back to a nested-map walk for reports assembled as a tree of
	// maps rather than a pre-flattened one.
	return walk(r.fields, strings.Split(path, "."))
}

func walk(m map[string]any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return nil, false
	}
	cur, ok := m[parts[0]]
	if !ok {
		return nil, false
	}
	if len(parts) == 1 {
		return cur, true
	}
	nested, ok := cur.(map[string]any)
	if !ok {
		return nil, false
	}
	return walk(nested, parts[1:])
}
