// Package explain produces structural traces, not prose (spec.md §4.9,
// §9): the triggered_rules list IS the explanation substrate. Natural
// language generation is a downstream concern only acknowledged here.
package explain

import (
	"sort"

	"github.com/aristath/arduino-trader/internal/rulesengine/orchestrator"
)

// TriggeredRule is the per-rule evidence shape embedded in an
// AdvisorReport's per-purpose sections (spec.md §6.3).
type TriggeredRule struct {
	RuleID string  `json:"rule_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

// FromTriggers converts orchestrator evidence into the structural trace,
// preserving rule_id ordering (spec.md P10); orchestrator.RunForPurpose
// already returns triggers sorted, but this function re-sorts
// defensively so the explainer never depends on caller discipline.
func FromTriggers(triggers []orchestrator.TriggerInfo) []TriggeredRule {
	out := make([]TriggeredRule, len(triggers))
	for i, t := range triggers {
		out[i] = TriggeredRule{RuleID: t.RuleID, Name: t.Name, Score: t.Score}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}
