package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawAggregate_EmptyYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, RawAggregate(nil, ModeMean))
	assert.Equal(t, 0.0, RawAggregate([]float64{}, ModeMax))
}

func TestRawAggregate_Mean(t *testing.T) {
	assert.Equal(t, 2.0, RawAggregate([]float64{1, 2, 3}, ModeMean))
}

func TestRawAggregate_Max(t *testing.T) {
	assert.Equal(t, 0.9, RawAggregate([]float64{0.1, 0.9, 0.3}, ModeMax))
}

func TestRawAggregate_Median(t *testing.T) {
	assert.Equal(t, 2.0, RawAggregate([]float64{3, 1, 2}, ModeMedian))
}

func TestRawAggregate_WeightedMeanDegradesToMean(t *testing.T) {
	assert.Equal(t, RawAggregate([]float64{1, 2, 3}, ModeMean), RawAggregate([]float64{1, 2, 3}, ModeWeightedMean))
}

// TestE1_NeutralReportNoRules is spec.md E1: with no scores anywhere, every
// raw and final score is 0.
func TestE1_NeutralReportNoRules(t *testing.T) {
	result := Aggregate(nil, nil, nil, [3]Mode{ModeMean, ModeMax, ModeMax}, Weights{Decision: 0.6, Risk: 0.6, Opportunity: 0.2})
	assert.Equal(t, 0.0, result.FinalDecision)
	assert.Equal(t, 0.0, result.FinalRisk)
	assert.Equal(t, 0.0, result.FinalOpportunity)

	thresholds := DefaultThresholds()
	assert.Equal(t, Hold, MapDecision(result.FinalDecision, thresholds))
	assert.Equal(t, RiskLow, MapRisk(result.FinalRisk, thresholds))
	assert.Equal(t, OppLow, MapOpportunity(result.FinalOpportunity, thresholds))
}

// TestE2_SingleDecisionRuleStrongBuy is spec.md E2's aggregation half: a
// lone DECISION_SIGNAL score of 1.0 with full decision weight maps to
// STRONG_BUY.
func TestE2_SingleDecisionRuleStrongBuy(t *testing.T) {
	result := Aggregate([]float64{1.0}, nil, nil, [3]Mode{ModeMean, ModeMax, ModeMax}, Weights{Decision: 1, Risk: 1, Opportunity: 1})
	assert.Equal(t, 1.0, result.FinalDecision)
	assert.Equal(t, StrongBuy, MapDecision(result.FinalDecision, DefaultThresholds()))
}

// TestE3_RiskDominatesDecision is spec.md E3 verbatim: decision +0.8, risk
// 0.9, weights (0.6, 0.6, 0.2) -> final_decision = -0.06 (HOLD), final_risk
// = 0.9 (RISK_HIGH).
func TestE3_RiskDominatesDecision(t *testing.T) {
	result := Aggregate([]float64{0.8}, []float64{0.9}, nil, [3]Mode{ModeMean, ModeMax, ModeMax}, Weights{Decision: 0.6, Risk: 0.6, Opportunity: 0.2})
	assert.InDelta(t, -0.06, result.FinalDecision, 1e-9)
	assert.Equal(t, 0.9, result.FinalRisk)

	thresholds := DefaultThresholds()
	assert.Equal(t, Hold, MapDecision(result.FinalDecision, thresholds))
	assert.Equal(t, RiskHigh, MapRisk(result.FinalRisk, thresholds))
}

func TestAggregate_FinalDecisionClampedToUnitRange(t *testing.T) {
	result := Aggregate([]float64{1, 1, 1}, nil, nil, [3]Mode{ModeMean, ModeMax, ModeMax}, Weights{Decision: 5, Risk: 0, Opportunity: 0})
	assert.Equal(t, 1.0, result.FinalDecision)

	result = Aggregate(nil, []float64{1}, nil, [3]Mode{ModeMean, ModeMax, ModeMax}, Weights{Decision: 0, Risk: 5, Opportunity: 0})
	assert.Equal(t, -1.0, result.FinalDecision)
}

// TestP4_RiskMonotonicity: increasing any risk score never decreases
// final_risk and never increases final_decision, holding decision/
// opportunity fixed.
func TestP4_RiskMonotonicity(t *testing.T) {
	weights := Weights{Decision: 0.5, Risk: 0.5, Opportunity: 0.5}
	low := Aggregate([]float64{0.5}, []float64{0.2}, []float64{0.3}, [3]Mode{ModeMean, ModeMax, ModeMax}, weights)
	high := Aggregate([]float64{0.5}, []float64{0.2, 0.8}, []float64{0.3}, [3]Mode{ModeMean, ModeMax, ModeMax}, weights)

	assert.GreaterOrEqual(t, high.FinalRisk, low.FinalRisk)
	assert.LessOrEqual(t, high.FinalDecision, low.FinalDecision)
}

// TestP5_OpportunityMonotonicity: increasing any opportunity score never
// decreases final_opportunity and never decreases final_decision.
func TestP5_OpportunityMonotonicity(t *testing.T) {
	weights := Weights{Decision: 0.5, Risk: 0.5, Opportunity: 0.5}
	low := Aggregate([]float64{0.5}, []float64{0.2}, []float64{0.3}, [3]Mode{ModeMean, ModeMax, ModeMax}, weights)
	high := Aggregate([]float64{0.5}, []float64{0.2}, []float64{0.3, 0.9}, [3]Mode{ModeMean, ModeMax, ModeMax}, weights)

	assert.GreaterOrEqual(t, high.FinalOpportunity, low.FinalOpportunity)
	assert.GreaterOrEqual(t, high.FinalDecision, low.FinalDecision)
}

func TestMapDecision_BoundaryPolicy(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, StrongSell, MapDecision(-1.0, th))
	assert.Equal(t, StrongSell, MapDecision(-0.61, th))
	assert.Equal(t, Sell, MapDecision(-0.6, th))
	assert.Equal(t, Sell, MapDecision(-0.21, th))
	assert.Equal(t, Hold, MapDecision(-0.2, th))
	assert.Equal(t, Hold, MapDecision(0, th))
	assert.Equal(t, Hold, MapDecision(0.2, th))
	assert.Equal(t, Buy, MapDecision(0.21, th))
	assert.Equal(t, Buy, MapDecision(0.6, th))
	assert.Equal(t, StrongBuy, MapDecision(0.61, th))
	assert.Equal(t, StrongBuy, MapDecision(1.0, th))
}

func TestMapRisk_BoundaryPolicy(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, RiskLow, MapRisk(0.0, th))
	assert.Equal(t, RiskLow, MapRisk(0.33, th))
	assert.Equal(t, RiskModerate, MapRisk(0.34, th))
	assert.Equal(t, RiskModerate, MapRisk(0.66, th))
	assert.Equal(t, RiskHigh, MapRisk(0.67, th))
	assert.Equal(t, RiskHigh, MapRisk(1.0, th))
}

func TestMapOpportunity_BoundaryPolicy(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, OppLow, MapOpportunity(0.33, th))
	assert.Equal(t, OppInteresting, MapOpportunity(0.34, th))
	assert.Equal(t, OppInteresting, MapOpportunity(0.66, th))
	assert.Equal(t, OppStrong, MapOpportunity(0.67, th))
}
