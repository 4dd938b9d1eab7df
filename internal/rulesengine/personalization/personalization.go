// Package personalization implements the Personalization Adapter (spec.md
// §4.8): deterministic, pure functions translating an InvestmentProfile
// into a Rules Orchestrator selector, meta-synthesis weights, and Action
// Mapper modifiers. The MVP keeps no state (spec.md §4.8).
package personalization

import (
	"strings"

	"github.com/aristath/arduino-trader/internal/domain"
	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/rulesengine/aggregator"
	"github.com/aristath/arduino-trader/internal/rulesengine/orchestrator"
)

// Adapted bundles the three outputs spec.md §4.8 requires.
type Adapted struct {
	Selector      orchestrator.Selector
	MetaWeights   aggregator.Weights
	ActionModifiers domain.Modifiers
}

// excludedTags is how a RuleRecord declares the sectors/tickers it applies
// to, read from its Metrics map under "tags" (opaque to the core engine,
// populated by the rule author or evolutionary producer).
func excludedTags(rec ruledb.RuleRecord, excluded []string) bool {
	if len(excluded) == 0 || rec.Metrics == nil {
		return false
	}
	raw, ok := rec.Metrics["tags"]
	if !ok {
		return false
	}
	tags, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, t := range tags {
		tag, ok := t.(string)
		if !ok {
			continue
		}
		for _, ex := range excluded {
			if strings.EqualFold(tag, ex) {
				return true
			}
		}
	}
	return false
}

// Adapt derives the selector/weights/modifiers triplet from profile
// (spec.md §4.8).
func Adapt(profile domain.InvestmentProfile) Adapted {
	excluded := append(append([]string{}, profile.Preferences.ExcludedSectors...), profile.Preferences.ExcludedTickers...)

	selector := func(rec ruledb.RuleRecord) bool {
		return !excludedTags(rec, excluded)
	}

	return Adapted{
		Selector:        selector,
		MetaWeights:     metaWeights(profile),
		ActionModifiers: actionModifiers(profile),
	}
}

// metaWeights returns (w_d, w_r, w_o) as a pure function of risk appetite
// and goal (spec.md §4.6, §4.8). Weights always sum > 0.
func metaWeights(profile domain.InvestmentProfile) aggregator.Weights {
	switch profile.RiskAppetite {
	case domain.RiskAppetiteConservative:
		return aggregator.Weights{Decision: 0.4, Risk: 0.8, Opportunity: 0.1}
	case domain.RiskAppetiteAggressive:
		return aggregator.Weights{Decision: 0.7, Risk: 0.3, Opportunity: 0.5}
	case domain.RiskAppetiteModerate:
		fallthrough
	default:
		return aggregator.Weights{Decision: 0.6, Risk: 0.6, Opportunity: 0.2}
	}
}

// actionModifiers returns (position_sizing_factor, risk_tolerance_factor)
// as a pure function of risk appetite and knowledge (spec.md §4.7, §4.8).
func actionModifiers(profile domain.InvestmentProfile) domain.Modifiers {
	var sizing, tolerance float64
	switch profile.RiskAppetite {
	case domain.RiskAppetiteConservative:
		sizing, tolerance = 0.5, 0.6
	case domain.RiskAppetiteAggressive:
		sizing, tolerance = 1.2, 1.3
	case domain.RiskAppetiteModerate:
		fallthrough
	default:
		sizing, tolerance = 0.8, 1.0
	}

	// A beginner investor gets a further sizing haircut regardless of
	// stated risk appetite.
	if profile.Knowledge == domain.KnowledgeBeginner {
		sizing *= 0.75
	}

	return domain.Modifiers{PositionSizingFactor: sizing, RiskToleranceFactor: tolerance}
}
