// Package builtins registers the builtin vocabulary (spec.md §2, §4.2):
// constants, variables with a path into the Analysis Report, and the
// contractual operator set. Register is meant to be called exactly once
// at process start, mirroring the registry's initialize-once,
// publish-then-freeze discipline (spec.md §9).
package builtins

import (
	"fmt"
	"math"

	"github.com/aristath/arduino-trader/internal/rulesengine/node"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
)

// Options carries the one piece of builtin behavior that is configuration
// rather than code (spec.md §6.4): DIV_SAFE's epsilon.
type Options struct {
	DivSafeEpsilon float64
}

// DefaultOptions mirrors config.DefaultRuleEngineConfig's DivSafeEpsilon.
func DefaultOptions() Options {
	return Options{DivSafeEpsilon: 1e-9}
}

// Register populates r with every builtin constant, variable and
// operator. It is idempotent only in the sense that calling it twice on
// the same fresh registry fails loudly (DuplicateNodeError) — exactly the
// protection spec.md §9 asks for.
func Register(r *registry.Registry, opts Options) error {
	for _, fn := range []func(*registry.Registry, Options) error{
		registerConstants,
		registerVariables,
		registerArithmetic,
		registerComparison,
		registerLogical,
		registerAggregation,
		registerSmoothing,
		registerBranch,
		registerPurposeTags,
	} {
		if err := fn(r, opts); err != nil {
			return err
		}
	}
	return nil
}

func constantBuild(value float64) registry.Build {
	return func(children []node.TreeNode, params map[string]any, resolved semtype.Type) (node.TreeNode, error) {
		return &node.Constant{Value: value, Return: resolved}, nil
	}
}

func registerConstants(r *registry.Registry, _ Options) error {
	constants := []struct {
		name  string
		raw   float64
		norm  node.Norm
		ret   semtype.Type
	}{
		{"CONST_ZERO", 0, node.NormRaw, semtype.Numerical},
		{"CONST_ONE", 1, node.NormRaw, semtype.Numerical},
		{"CONST_NEG_ONE", -1, node.NormRaw, semtype.Numerical},
		{"CONST_RSI_OVERBOUGHT", 70, node.NormPercent, semtype.Momentum},
		{"CONST_RSI_OVERSOLD", 30, node.NormPercent, semtype.Momentum},
		{"CONST_TREND_STRENGTH_HALF", 50, node.NormPercent, semtype.Trend},
	}

	for _, c := range constants {
		normalize := node.Normalizers[c.norm]
		value := normalize(c.raw)
		spec := registry.NodeSpec{
			NodeName:    c.name,
			Category:    registry.CategoryConstant,
			ReturnType:  c.ret,
			Description: fmt.Sprintf("literal %v normalized %s", c.raw, c.norm),
			Build: func(name string, value float64) registry.Build {
				return func(children []node.TreeNode, params map[string]any, resolved semtype.Type) (node.TreeNode, error) {
					return &node.Constant{Name: name, Value: value, Return: resolved}, nil
				}
			}(c.name, value),
		}
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

// variableDef declares one built-in Variable's path, encoder, bound and
// return type (spec.md §4.2, §6.1).
type variableDef struct {
	name    string
	path    string
	kind    node.EncoderKind
	encoder node.Encoder
	ret     semtype.Type
}

func registerVariables(r *registry.Registry, _ Options) error {
	vars := []variableDef{
		{
			name:    "VAR_RSI_14",
			path:    "technical_report.daily_report.key_indicators.rsi_14",
			kind:    node.EncodeIdentity,
			encoder: identityEncoder(100, 0),
			ret:     semtype.Momentum,
		},
		{
			name:    "VAR_TREND_STRENGTH",
			path:    "technical_report.daily_report.trend_report.overall_strength.value",
			kind:    node.EncodeIdentity,
			encoder: identityEncoder(1, 0),
			ret:     semtype.Trend,
		},
		{
			name: "VAR_MIDTERM_MA_DIRECTION",
			path: "technical_report.daily_report.trend_report.midterm_report.ma_direction",
			kind: node.EncodeCategoryMap,
			encoder: categoryMapEncoder(map[string]float64{
				"uptrend":   1.0,
				"downtrend": -1.0,
				"sideways":  0.0,
			}, 0),
			ret: semtype.Trend,
		},
		{
			name: "VAR_MACD_CROSSOVER",
			path: "technical_report.intraday_report.momentum_report.macd_crossover",
			kind: node.EncodeCategoryMap,
			encoder: categoryMapEncoder(map[string]float64{
				"bull": 1.0,
				"bear": -1.0,
				"none": 0.0,
			}, 0),
			ret: semtype.Momentum,
		},
		{
			name:    "VAR_NEWS_POSITIVE_COUNT",
			path:    "news_report.summary.num_positive_sentiment",
			kind:    node.EncodeSignedLog,
			encoder: signedLogEncoder(5, 0),
			ret:     semtype.Sentiment,
		},
		{
			name:    "VAR_NEWS_NEGATIVE_COUNT",
			path:    "news_report.summary.num_negative_sentiment",
			kind:    node.EncodeSignedLog,
			encoder: signedLogEncoder(5, 0),
			ret:     semtype.Sentiment,
		},
		{
			name:    "VAR_NEWS_HIGH_IMPACT_COUNT",
			path:    "news_report.summary.num_high_impact",
			kind:    node.EncodeSignedLog,
			encoder: signedLogEncoder(3, 0),
			ret:     semtype.Sentiment,
		},
		{
			name:    "VAR_FORECAST_PROB_UP",
			path:    "forecasting_report.forecasts.0.prediction.0",
			kind:    node.EncodeIdentity,
			encoder: identityEncoder(1, 0),
			ret:     semtype.ForecastProb,
		},
		{
			name:    "VAR_VOLATILITY_REGIME",
			path:    "technical_report.daily_report.volatility_report.atr_percentile",
			kind:    node.EncodeBucketized,
			encoder: bucketizedEncoder([]float64{25, 50, 75}, 0),
			ret:     semtype.Volatility,
		},
		{
			name:    "VAR_PRICE_MOMENTUM_SIGN",
			path:    "technical_report.daily_report.key_indicators.price_change_pct",
			kind:    node.EncodeSign,
			encoder: signEncoder(0),
			ret:     semtype.Momentum,
		},
		{
			name:    "VAR_EARNINGS_SURPRISE_FLAG",
			path:    "fundamentals_report.earnings.beat_estimate",
			kind:    node.EncodeBoolean,
			encoder: booleanEncoder(0),
			ret:     semtype.Sentiment,
		},
	}

	for _, v := range vars {
		spec := registry.NodeSpec{
			NodeName:    v.name,
			Category:    registry.CategoryVariable,
			ReturnType:  v.ret,
			Description: fmt.Sprintf("reads %s via %s encoder", v.path, v.kind),
			Build: func(v variableDef) registry.Build {
				return func(children []node.TreeNode, params map[string]any, resolved semtype.Type) (node.TreeNode, error) {
					return &node.Variable{Name: v.name, Path: v.path, Kind: v.kind, Encode: v.encoder, Return: resolved}, nil
				}
			}(v),
		}
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func opBuild(name string, fn node.Op) registry.Build {
	return func(children []node.TreeNode, params map[string]any, resolved semtype.Type) (node.TreeNode, error) {
		return &node.FunctionalOperator{Name: name, Fn: fn, Return: resolved, Kids: children}, nil
	}
}

func binaryNumeric(fn func(a, b float64) float64) node.Op {
	return func(c []float64) float64 {
		return fn(c[0], c[1])
	}
}

func registerArithmetic(r *registry.Registry, opts Options) error {
	eps := opts.DivSafeEpsilon
	if eps <= 0 {
		eps = 1e-9
	}

	ops := []struct {
		name string
		fn   node.Op
	}{
		{"ADD", binaryNumeric(func(a, b float64) float64 { return a + b })},
		{"SUB", binaryNumeric(func(a, b float64) float64 { return a - b })},
		{"MUL", binaryNumeric(func(a, b float64) float64 { return a * b })},
		{"DIV_SAFE", binaryNumeric(func(a, b float64) float64 {
			if math.Abs(b) < eps {
				return 0
			}
			return a / b
		})},
	}

	for _, op := range ops {
		spec := registry.NodeSpec{
			NodeName:   op.name,
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Numerical,
			ArgsType:   []semtype.Type{semtype.Numerical, semtype.Numerical},
			Build:      opBuild(op.name, op.fn),
		}
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return -1.0
}

func registerComparison(r *registry.Registry, _ Options) error {
	ops := []struct {
		name string
		fn   node.Op
	}{
		{"GT", binaryNumeric(func(a, b float64) float64 { return boolFloat(a > b) })},
		{"LT", binaryNumeric(func(a, b float64) float64 { return boolFloat(a < b) })},
		{"GEQ", binaryNumeric(func(a, b float64) float64 { return boolFloat(a >= b) })},
		{"LEQ", binaryNumeric(func(a, b float64) float64 { return boolFloat(a <= b) })},
		{"EQ", binaryNumeric(func(a, b float64) float64 { return boolFloat(a == b) })},
	}
	for _, op := range ops {
		spec := registry.NodeSpec{
			NodeName:   op.name,
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Boolean,
			ArgsType:   []semtype.Type{semtype.Numerical, semtype.Numerical},
			Build:      opBuild(op.name, op.fn),
		}
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func registerLogical(r *registry.Registry, _ Options) error {
	specs := []registry.NodeSpec{
		{
			NodeName:   "AND",
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Boolean,
			ArgsType:   []semtype.Type{semtype.Boolean, semtype.Boolean},
			Build:      opBuild("AND", binaryNumeric(math.Min)),
		},
		{
			NodeName:   "OR",
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Boolean,
			ArgsType:   []semtype.Type{semtype.Boolean, semtype.Boolean},
			Build:      opBuild("OR", binaryNumeric(math.Max)),
		},
		{
			NodeName:   "NOT",
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Boolean,
			ArgsType:   []semtype.Type{semtype.Boolean},
			Build:      opBuild("NOT", func(c []float64) float64 { return -c[0] }),
		},
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func registerAggregation(r *registry.Registry, _ Options) error {
	resolver := func(childTypes []semtype.Type) semtype.Type {
		return semtype.Numerical
	}

	variadic := func(name string, fn func([]float64) float64) registry.NodeSpec {
		return registry.NodeSpec{
			NodeName:   name,
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Numerical,
			ArgsType:   nil, // variadic, arity enforced only against zero children
			Resolver:   resolver,
			Build:      opBuild(name, fn),
		}
	}

	specs := []registry.NodeSpec{
		variadic("MIN", func(c []float64) float64 {
			m := c[0]
			for _, v := range c[1:] {
				if v < m {
					m = v
				}
			}
			return m
		}),
		variadic("MAX", func(c []float64) float64 {
			m := c[0]
			for _, v := range c[1:] {
				if v > m {
					m = v
				}
			}
			return m
		}),
		variadic("MEAN", func(c []float64) float64 {
			sum := 0.0
			for _, v := range c {
				sum += v
			}
			return sum / float64(len(c))
		}),
		variadic("WEIGHTED_SUM", func(c []float64) float64 {
			// even-indexed entries are values, odd-indexed are weights;
			// an odd total count treats the trailing value as weight 1.
			sum, weightSum := 0.0, 0.0
			for i := 0; i+1 < len(c); i += 2 {
				sum += c[i] * c[i+1]
				weightSum += c[i+1]
			}
			if len(c)%2 == 1 {
				sum += c[len(c)-1]
				weightSum += 1
			}
			if weightSum == 0 {
				return 0
			}
			return sum / weightSum
		}),
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func registerSmoothing(r *registry.Registry, _ Options) error {
	specs := []registry.NodeSpec{
		{
			NodeName:   "CLAMP",
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Numerical,
			ArgsType:   []semtype.Type{semtype.Numerical, semtype.Numerical, semtype.Numerical},
			Build: opBuild("CLAMP", func(c []float64) float64 {
				return clamp(c[0], c[1], c[2])
			}),
		},
		{
			NodeName:   "SIGN",
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Numerical,
			ArgsType:   []semtype.Type{semtype.Numerical},
			Build: opBuild("SIGN", func(c []float64) float64 {
				switch {
				case c[0] > 0:
					return 1
				case c[0] < 0:
					return -1
				default:
					return 0
				}
			}),
		},
		{
			NodeName:   "TANH",
			Category:   registry.CategoryOperator,
			ReturnType: semtype.Numerical,
			ArgsType:   []semtype.Type{semtype.Numerical},
			Build: opBuild("TANH", func(c []float64) float64 {
				return math.Tanh(c[0])
			}),
		},
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func registerBranch(r *registry.Registry, _ Options) error {
	resolver := func(childTypes []semtype.Type) semtype.Type {
		// Return type from the ifTrue/ifFalse return types (args 1, 2):
		// equal types give that type, and an ANY on the ifTrue side
		// defers to ifFalse; otherwise the ifTrue type wins. Differing
		// branch types are not rejected: ArgsType declares both branch
		// slots ANY, so any pair of types passes construction.
		if len(childTypes) < 3 {
			return semtype.Any
		}
		a, b := childTypes[1], childTypes[2]
		if a == b {
			return a
		}
		if a == semtype.Any {
			return b
		}
		return a
	}

	spec := registry.NodeSpec{
		NodeName:   "IF_THEN_ELSE",
		Category:   registry.CategoryOperator,
		ReturnType: semtype.Any,
		// The predicate slot is BOOLEAN, not NUMERICAL: GT/LT/AND/OR/etc.
		// all return BOOLEAN (Q2's fixed {-1,+1} encoding), and BOOLEAN
		// deliberately does not widen into NUMERICAL, so a comparison or
		// logical result is the only thing meant to gate a branch here.
		ArgsType: []semtype.Type{semtype.Boolean, semtype.Any, semtype.Any},
		Resolver: resolver,
		Build: func(children []node.TreeNode, params map[string]any, resolved semtype.Type) (node.TreeNode, error) {
			return &node.BranchOperator{Name: "IF_THEN_ELSE", Return: resolved, Kids: children}, nil
		},
	}
	return r.Register(spec)
}

// registerPurposeTags registers the three single-child wrapper operators a
// rule tree's root must end in to satisfy rule.New's purpose check
// (spec.md Q3): every other builtin operator returns a domain-typed or
// NUMERICAL value, never DECISION_SIGNAL/RISK_LEVEL/OPPORTUNITY_RATING
// directly, so a producer closes a candidate tree off with whichever of
// these three matches the rule it is building. Each clamps the wrapped
// subtree into its purpose's own canonical range (spec.md §3.4: DECISION_SIGNAL
// is [-1, 1]; RISK_LEVEL and OPPORTUNITY_RATING are [0, 1]) rather than
// trusting the subtree to already be bounded.
func registerPurposeTags(r *registry.Registry, _ Options) error {
	tags := []struct {
		name   string
		result semtype.Type
		clamp  func(float64) float64
	}{
		{"AS_DECISION_SIGNAL", semtype.DecisionSignal, clampUnit},
		{"AS_RISK_LEVEL", semtype.RiskLevel, clampZeroOne},
		{"AS_OPPORTUNITY_RATING", semtype.OpportunityRating, clampZeroOne},
	}
	for _, tag := range tags {
		clamp := tag.clamp
		spec := registry.NodeSpec{
			NodeName:   tag.name,
			Category:   registry.CategoryOperator,
			ReturnType: tag.result,
			ArgsType:   []semtype.Type{semtype.Numerical},
			Build:      opBuild(tag.name, func(c []float64) float64 { return clamp(c[0]) }),
		}
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

func clampZeroOne(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < 0 {
		return 0
	}
	return x
}
