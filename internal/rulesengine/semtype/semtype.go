// Package semtype defines the SemanticType taxonomy (spec.md §3.1): a
// closed enumeration of business-meaningful tags that prevent nonsensical
// node combinations under STGP.
package semtype

// Type is a closed enum of node-output tags. Renaming a value requires a
// schema migration since the rules table stores each rule's purpose as
// this string; the type also gates what a producer may wire.
type Type string

const (
	Price             Type = "PRICE"
	Momentum          Type = "MOMENTUM"
	Trend             Type = "TREND"
	Boolean           Type = "BOOLEAN"
	Numerical         Type = "NUMERICAL"
	DecisionSignal    Type = "DECISION_SIGNAL"
	RiskLevel         Type = "RISK_LEVEL"
	OpportunityRating Type = "OPPORTUNITY_RATING"
	Sentiment         Type = "SENTIMENT"
	Volatility        Type = "VOLATILITY"
	Volume            Type = "VOLUME"
	ForecastProb      Type = "FORECAST_PROB"
	Percentage        Type = "PERCENTAGE"
	FinancialRatio    Type = "FINANCIAL_RATIO"
	Any               Type = "ANY"
)

// numericCompatible is the set of tags silently widened to NUMERICAL by
// arithmetic/comparison operators whose args_type is NUMERICAL (spec.md
// §3.1).
var numericCompatible = map[Type]bool{
	Numerical:      true,
	Price:          true,
	Percentage:     true,
	FinancialRatio: true,
	Momentum:       true,
	Trend:          true,
	Volatility:     true,
	Volume:         true,
	Sentiment:      true,
	ForecastProb:   true,
}

// NumericCompatible reports whether t is silently widened to NUMERICAL.
func NumericCompatible(t Type) bool {
	return numericCompatible[t]
}

// Widen returns NUMERICAL if t is numeric-compatible, else t unchanged.
func Widen(t Type) Type {
	if NumericCompatible(t) {
		return Numerical
	}
	return t
}

// Assignable implements assignable(T, U): T may flow into a slot declared
// to accept U iff T == U, either is ANY, or U is NUMERICAL and T is
// numeric-compatible. ANY acts as both top and bottom
// for STGP convenience (spec.md §3.1).
func Assignable(t, u Type) bool {
	if t == u || t == Any || u == Any {
		return true
	}
	// A numeric-compatible child may flow into a NUMERICAL slot even
	// without an explicit widen call by the caller.
	if u == Numerical && NumericCompatible(t) {
		return true
	}
	return false
}

// Purposes is the set of valid Rule.purpose values (spec.md §3.4).
var Purposes = map[Type]bool{
	DecisionSignal:    true,
	RiskLevel:         true,
	OpportunityRating: true,
}

// IsPurpose reports whether t is a valid rule purpose.
func IsPurpose(t Type) bool {
	return Purposes[t]
}
