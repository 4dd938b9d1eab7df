package node

import (
	"math"
	"testing"

	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapReport map[string]any

func (m mapReport) Get(path string) (any, bool) {
	v, ok := m[path]
	return v, ok
}

func TestConstant_EvaluateReturnsStoredValue(t *testing.T) {
	c := &Constant{Name: "CONST_ZERO", Value: 0, Return: semtype.Numerical}
	v, err := c.Evaluate(mapReport{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	assert.Empty(t, c.Children())
}

func TestConstant_NeverReadsReport(t *testing.T) {
	c := &Constant{Name: "CONST_ONE", Value: 1, Return: semtype.Numerical}
	v1, err := c.Evaluate(mapReport{"x": 999.0}, 0)
	require.NoError(t, err)
	v2, err := c.Evaluate(mapReport{}, 0)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestNormalizers_Idempotent(t *testing.T) {
	for norm, fn := range Normalizers {
		for _, x := range []float64{0, 1, -1, 37.5, 100} {
			once := fn(x)
			twice := fn(once)
			assert.InDeltaf(t, once, twice, 1e-12, "normalizer %s not idempotent at %v", norm, x)
		}
	}
}

func TestVariable_MissingPathYieldsNeutral(t *testing.T) {
	neutral := 0.25
	v := &Variable{
		Name: "VAR_X",
		Path: "some.missing.path",
		Kind: EncodeIdentity,
		Encode: func(raw any, present bool) float64 {
			if !present {
				return neutral
			}
			return raw.(float64)
		},
		Return: semtype.Numerical,
	}
	out, err := v.Evaluate(mapReport{}, 0)
	require.NoError(t, err)
	assert.Equal(t, neutral, out)
}

func TestVariable_PresentPathAppliesEncoder(t *testing.T) {
	v := &Variable{
		Name: "VAR_RSI",
		Path: "rsi",
		Kind: EncodeIdentity,
		Encode: func(raw any, present bool) float64 {
			if !present {
				return 0
			}
			return raw.(float64) / 100.0
		},
		Return: semtype.Momentum,
	}
	out, err := v.Evaluate(mapReport{"rsi": 60.0}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.6, out)
}

func TestVariable_NonFiniteEncoderOutputFails(t *testing.T) {
	v := &Variable{
		Name:   "VAR_BAD",
		Path:   "x",
		Kind:   EncodeIdentity,
		Encode: func(raw any, present bool) float64 { return math.NaN() },
		Return: semtype.Numerical,
	}
	_, err := v.Evaluate(mapReport{"x": 1.0}, 0)
	assert.Error(t, err)
}

func TestFunctionalOperator_EvaluatesChildrenInOrder(t *testing.T) {
	var order []int
	mkChild := func(i int, v float64) TreeNode {
		return &FunctionalOperator{
			Name: "TRACK",
			Fn: func(c []float64) float64 {
				order = append(order, i)
				return v
			},
			Return: semtype.Numerical,
		}
	}
	op := &FunctionalOperator{
		Name: "ADD",
		Fn:   func(c []float64) float64 { return c[0] + c[1] },
		Kids: []TreeNode{mkChild(0, 2), mkChild(1, 3)},
		Return: semtype.Numerical,
	}
	out, err := op.Evaluate(mapReport{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out)
	assert.Equal(t, []int{0, 1}, order)
}

func TestFunctionalOperator_NonFiniteResultFails(t *testing.T) {
	op := &FunctionalOperator{
		Name:   "DIV",
		Fn:     func(c []float64) float64 { return c[0] / c[1] },
		Kids:   []TreeNode{&Constant{Value: 1, Return: semtype.Numerical}, &Constant{Value: 0, Return: semtype.Numerical}},
		Return: semtype.Numerical,
	}
	_, err := op.Evaluate(mapReport{}, 0)
	assert.Error(t, err)
}

func TestBranchOperator_EvaluatesOnlySelectedBranch(t *testing.T) {
	trueEvaluated, falseEvaluated := false, false
	predTrue := &Constant{Value: 1, Return: semtype.Numerical}
	ifTrue := &FunctionalOperator{Name: "T", Fn: func(c []float64) float64 { trueEvaluated = true; return 10 }, Return: semtype.Numerical}
	ifFalse := &FunctionalOperator{Name: "F", Fn: func(c []float64) float64 { falseEvaluated = true; return -10 }, Return: semtype.Numerical}

	b := &BranchOperator{Name: "IF_THEN_ELSE", Return: semtype.Numerical, Kids: []TreeNode{predTrue, ifTrue, ifFalse}}
	out, err := b.Evaluate(mapReport{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, out)
	assert.True(t, trueEvaluated)
	assert.False(t, falseEvaluated)
}

func TestBranchOperator_PredicateTruthyThreshold(t *testing.T) {
	ifTrue := &Constant{Value: 1, Return: semtype.Numerical}
	ifFalse := &Constant{Value: -1, Return: semtype.Numerical}

	zero := &Constant{Value: 0, Return: semtype.Numerical}
	b := &BranchOperator{Name: "IF_THEN_ELSE", Return: semtype.Numerical, Kids: []TreeNode{zero, ifTrue, ifFalse}}
	out, err := b.Evaluate(mapReport{}, 0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, out, "predicate of exactly 0 is not truthy (must be > 0)")
}

func TestCheckDepth_RejectsBeyondMax(t *testing.T) {
	c := &Constant{Name: "C", Value: 1, Return: semtype.Numerical}
	_, err := c.Evaluate(mapReport{}, MaxTreeDepth+1)
	assert.Error(t, err)
}

func TestCheckDepth_AllowsExactlyMax(t *testing.T) {
	c := &Constant{Name: "C", Value: 1, Return: semtype.Numerical}
	_, err := c.Evaluate(mapReport{}, MaxTreeDepth)
	assert.NoError(t, err)
}
