// Package action implements the Action Mapper (spec.md §4.7): a pure
// function from (decision label, final risk, final opportunity) plus
// personalization modifiers to a concrete TradingAction.
package action

import (
	"math"

	"github.com/aristath/arduino-trader/internal/domain"
	"github.com/aristath/arduino-trader/internal/rulesengine/aggregator"
)

// Type is BUY/SELL/HOLD (spec.md §4.7: STRONG_* fold into BUY/SELL).
type Type string

const (
	Buy  Type = "BUY"
	Sell Type = "SELL"
	Hold Type = "HOLD"
)

// TradingAction is the Action Mapper's output (spec.md §6.3).
type TradingAction struct {
	ActionType      Type
	PositionSizePct float64
	TPPct           float64
	SLPct           float64
}

// Constants carries the data, not code, constants the mapper needs
// (spec.md §4.7, §6.4): base_size, base_tp, base_sl, k, k_prime.
type Constants struct {
	BaseSize map[aggregator.DecisionLabel]float64
	BaseTP   map[domain.Horizon]float64
	BaseSL   map[domain.Horizon]float64
	K        float64
	KPrime   float64
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func typeFromLabel(label aggregator.DecisionLabel) Type {
	switch label {
	case aggregator.StrongSell, aggregator.Sell:
		return Sell
	case aggregator.StrongBuy, aggregator.Buy:
		return Buy
	default:
		return Hold
	}
}

// Map implements spec.md §4.7's mapping exactly: position_size_pct, tp_pct
// and sl_pct are all forced to zero for HOLD.
func Map(label aggregator.DecisionLabel, finalRisk, finalOpportunity float64, horizon domain.Horizon, modifiers domain.Modifiers, c Constants) TradingAction {
	actionType := typeFromLabel(label)
	if actionType == Hold {
		return TradingAction{ActionType: Hold}
	}

	positionSize := c.BaseSize[label] * modifiers.PositionSizingFactor * (1 - finalRisk/2)
	tp := c.BaseTP[horizon] * modifiers.RiskToleranceFactor * (1 + c.K*finalOpportunity)
	sl := c.BaseSL[horizon] * modifiers.RiskToleranceFactor * (1 + c.KPrime*finalRisk)

	return TradingAction{
		ActionType:      actionType,
		PositionSizePct: clamp01(positionSize),
		TPPct:           tp,
		SLPct:           sl,
	}
}
