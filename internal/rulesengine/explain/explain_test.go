package explain

import (
	"testing"

	"github.com/aristath/arduino-trader/internal/rulesengine/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromTriggers_SortsByRuleID is spec.md P10: triggered_rules arrays are
// sorted by rule_id regardless of input order.
func TestFromTriggers_SortsByRuleID(t *testing.T) {
	in := []orchestrator.TriggerInfo{
		{RuleID: "z-rule", Name: "Z", Score: 0.1},
		{RuleID: "a-rule", Name: "A", Score: 0.2},
		{RuleID: "m-rule", Name: "M", Score: 0.3},
	}
	out := FromTriggers(in)
	wantOrder := []string{"a-rule", "m-rule", "z-rule"}
	for i, want := range wantOrder {
		assert.Equal(t, want, out[i].RuleID)
	}
}

func TestFromTriggers_PreservesScoreAndName(t *testing.T) {
	in := []orchestrator.TriggerInfo{{RuleID: "r1", Name: "Rule One", Score: 0.55}}
	out := FromTriggers(in)
	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].RuleID)
	assert.Equal(t, "Rule One", out[0].Name)
	assert.Equal(t, 0.55, out[0].Score)
}

func TestFromTriggers_EmptyInputYieldsEmptyOutput(t *testing.T) {
	out := FromTriggers(nil)
	assert.Empty(t, out)
}
