// Package aggregator implements the Score Aggregator and ScoreFinalMapper
// (spec.md §4.6): a pure, deterministic numerical pipeline from raw
// per-purpose rule scores to final labelled {decision, risk, opportunity}
// triplets.
package aggregator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mode selects the raw-aggregation method for a purpose (spec.md §6.4
// aggregation.*_mode).
type Mode string

const (
	ModeMean         Mode = "mean"
	ModeMedian       Mode = "median"
	ModeMax          Mode = "max"
	ModeWeightedMean Mode = "weighted_mean"
)

// Thresholds holds the ascending cut points for one label mapping (spec.md
// §4.6). Decision has 4 cut points (5 buckets); risk/opportunity have 2
// (3 buckets).
type Thresholds struct {
	Decision    [4]float64
	Risk        [2]float64
	Opportunity [2]float64
}

// DefaultThresholds matches the defaults tabulated in spec.md §4.6 (Q1:
// source drafts disagree on exact cut points; these are the ones this
// repository's config.RuleEngineConfig ships by default).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Decision:    [4]float64{-0.6, -0.2, 0.2, 0.6},
		Risk:        [2]float64{0.33, 0.66},
		Opportunity: [2]float64{0.33, 0.66},
	}
}

// Weights is the personalization adapter's meta-synthesis weight vector
// (w_d, w_r, w_o); spec.md §4.6 requires w_d+w_r+w_o > 0.
type Weights struct {
	Decision    float64
	Risk        float64
	Opportunity float64
}

// RawAggregate applies mode to scores, defaulting to 0 for an empty slice
// (spec.md §4.6).
func RawAggregate(scores []float64, mode Mode) float64 {
	if len(scores) == 0 {
		return 0
	}
	switch mode {
	case ModeMax:
		m := scores[0]
		for _, s := range scores[1:] {
			if s > m {
				m = s
			}
		}
		return m
	case ModeMedian:
		sorted := append([]float64(nil), scores...)
		sort.Float64s(sorted)
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	case ModeWeightedMean:
		// Without per-rule weights supplied, weighted_mean degrades to an
		// unweighted mean — the contract only fixes the *shape* of the
		// pipeline; weighting itself is a producer/config concern.
		return stat.Mean(scores, nil)
	case ModeMean:
		fallthrough
	default:
		return stat.Mean(scores, nil)
	}
}

// Result is the aggregator's output before label mapping.
type Result struct {
	RawDecision    float64
	RawRisk        float64
	RawOpportunity float64

	FinalDecision    float64
	FinalRisk        float64
	FinalOpportunity float64
}

// Aggregate runs raw aggregation per spec.md's contractual defaults
// (decision: mean, risk: max, opportunity: max) unless overridden by
// modes, then meta-synthesis (spec.md §4.6).
func Aggregate(decisionScores, riskScores, opportunityScores []float64, modes [3]Mode, weights Weights) Result {
	defaults := [3]Mode{ModeMean, ModeMax, ModeMax}
	for i := range modes {
		if modes[i] == "" {
			modes[i] = defaults[i]
		}
	}

	raw := Result{
		RawDecision:    RawAggregate(decisionScores, modes[0]),
		RawRisk:        RawAggregate(riskScores, modes[1]),
		RawOpportunity: RawAggregate(opportunityScores, modes[2]),
	}

	final := weights.Decision*raw.RawDecision - weights.Risk*raw.RawRisk + weights.Opportunity*raw.RawOpportunity
	raw.FinalDecision = clamp(final, -1, 1)
	// Meta-synthesis MUST NOT dilute risk/opportunity signals — a safety
	// property (spec.md §4.6).
	raw.FinalRisk = raw.RawRisk
	raw.FinalOpportunity = raw.RawOpportunity

	return raw
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// DecisionLabel is STRONG_SELL/SELL/HOLD/BUY/STRONG_BUY (spec.md §4.6).
type DecisionLabel string

const (
	StrongSell DecisionLabel = "STRONG_SELL"
	Sell       DecisionLabel = "SELL"
	Hold       DecisionLabel = "HOLD"
	Buy        DecisionLabel = "BUY"
	StrongBuy  DecisionLabel = "STRONG_BUY"
)

// RiskLabel is RISK_LOW/RISK_MODERATE/RISK_HIGH.
type RiskLabel string

const (
	RiskLow      RiskLabel = "RISK_LOW"
	RiskModerate RiskLabel = "RISK_MODERATE"
	RiskHigh     RiskLabel = "RISK_HIGH"
)

// OpportunityLabel is OPP_LOW/OPP_INTERESTING/OPP_STRONG.
type OpportunityLabel string

const (
	OppLow         OpportunityLabel = "OPP_LOW"
	OppInteresting OpportunityLabel = "OPP_INTERESTING"
	OppStrong      OpportunityLabel = "OPP_STRONG"
)

// MapDecision implements the decision label table (spec.md §4.6):
// STRONG_SELL below t[0], SELL in [t[0], t[1]), HOLD in [t[1], t[2]],
// BUY in (t[2], t[3]], STRONG_BUY above t[3].
func MapDecision(score float64, t Thresholds) DecisionLabel {
	switch {
	case score < t.Decision[0]:
		return StrongSell
	case score < t.Decision[1]:
		return Sell
	case score <= t.Decision[2]:
		return Hold
	case score <= t.Decision[3]:
		return Buy
	default:
		return StrongBuy
	}
}

// MapRisk implements the risk label table (spec.md §4.6).
func MapRisk(score float64, t Thresholds) RiskLabel {
	switch {
	case score <= t.Risk[0]:
		return RiskLow
	case score <= t.Risk[1]:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// MapOpportunity implements the opportunity label table (spec.md §4.6).
func MapOpportunity(score float64, t Thresholds) OpportunityLabel {
	switch {
	case score <= t.Opportunity[0]:
		return OppLow
	case score <= t.Opportunity[1]:
		return OppInteresting
	default:
		return OppStrong
	}
}
