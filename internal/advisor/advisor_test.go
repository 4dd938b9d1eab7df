package advisor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/arduino-trader/internal/advisor"
	"github.com/aristath/arduino-trader/internal/analysis"
	"github.com/aristath/arduino-trader/internal/domain"
	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/rulesengine/action"
	"github.com/aristath/arduino-trader/internal/rulesengine/aggregator"
	"github.com/aristath/arduino-trader/internal/rulesengine/builtins"
	"github.com/aristath/arduino-trader/internal/rulesengine/orchestrator"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/aristath/arduino-trader/internal/rulesengine/serial"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	report *analysis.Report
	err    error
}

func (p *fakeProvider) Acquire(ctx context.Context, ticker string) (*analysis.Report, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.report, nil
}

func testConfig() advisor.Config {
	return advisor.Config{
		Thresholds: aggregator.DefaultThresholds(),
		Modes:      [3]aggregator.Mode{aggregator.ModeMean, aggregator.ModeMax, aggregator.ModeMax},
		ActionConsts: action.Constants{
			BaseSize: map[aggregator.DecisionLabel]float64{
				aggregator.StrongSell: 1.0,
				aggregator.Sell:       0.5,
				aggregator.Hold:       0.0,
				aggregator.Buy:        0.5,
				aggregator.StrongBuy:  1.0,
			},
			BaseTP: map[domain.Horizon]float64{domain.HorizonShort: 0.05, domain.HorizonMedium: 0.10, domain.HorizonLong: 0.20},
			BaseSL: map[domain.Horizon]float64{domain.HorizonShort: 0.03, domain.HorizonMedium: 0.06, domain.HorizonLong: 0.12},
			K:      0.5,
			KPrime: 0.5,
		},
	}
}

// newAdvisor wires a real in-memory Rule Repository, a registry-backed
// loader and a Rules Orchestrator, mirroring cmd/server/main.go's
// production wiring chain against ruledb.MemoryRepository instead of
// sqlite.
func newAdvisor(t *testing.T, provider advisor.AnalysisProvider, repo *ruledb.MemoryRepository) *advisor.Advisor {
	t.Helper()
	r := registry.New()
	require.NoError(t, builtins.Register(r, builtins.DefaultOptions()))

	loader := orchestrator.NewRegistryLoader(func(rec ruledb.RuleRecord) (*rule.Rule, error) {
		root, err := serial.Parse(r, rec.RootNode, rec.RuleID)
		if err != nil {
			return nil, err
		}
		return rule.New(rec.RuleID, rec.Name, rec.Description, rec.Version, rec.Status, rec.CreatedAtTS, rec.Metrics, root)
	})

	orch := orchestrator.New(repo, loader, 4)
	return advisor.New(provider, orch, testConfig(), zerolog.Nop())
}

func putRule(t *testing.T, repo *ruledb.MemoryRepository, id string, purpose semtype.Type, root serial.Dict) {
	t.Helper()
	require.NoError(t, repo.Put(ruledb.RuleRecord{
		RuleID:   id,
		Name:     id,
		Purpose:  purpose,
		Version:  1,
		Status:   rule.StatusReady,
		RootNode: root,
	}))
}

// TestE1_EmptyRepositoryYieldsNeutralHoldReport is spec.md E1: no rules
// anywhere, a neutral analysis report, and a profile produce HOLD /
// RISK_LOW / OPP_LOW with an all-zero trading action.
func TestE1_EmptyRepositoryYieldsNeutralHoldReport(t *testing.T) {
	repo := ruledb.NewMemoryRepository()
	provider := &fakeProvider{report: analysis.New("AAPL", "2026-01-01T00:00:00Z", 1, nil)}
	a := newAdvisor(t, provider, repo)

	out, err := a.Advise(context.Background(), "AAPL", domain.InvestmentProfile{RiskAppetite: domain.RiskAppetiteModerate}, domain.HorizonShort)
	require.NoError(t, err)

	require.Equal(t, "HOLD", out.FinalDecision.Label)
	require.Equal(t, "RISK_LOW", out.FinalRisk.Label)
	require.Equal(t, "OPP_LOW", out.FinalOpportunity.Label)
	require.False(t, out.Incomplete)
	require.Equal(t, 0.0, out.FinalAction.PositionSizePct)
	require.Equal(t, action.Hold, out.FinalAction.ActionType)
	require.Empty(t, out.FinalDecision.TriggeredRules)
}

// TestE2_SingleStrongBuyDecisionRuleProducesBuyAction is spec.md E2: a lone
// DECISION_SIGNAL rule emitting +1.0 maps through to a STRONG_BUY label
// folded into a BUY action with non-zero position sizing.
func TestE2_SingleStrongBuyDecisionRuleProducesBuyAction(t *testing.T) {
	repo := ruledb.NewMemoryRepository()
	// IF_THEN_ELSE(GT(1,0), 1, -1) -> 1.0, tagged as a decision signal.
	always := serial.Dict{
		NodeName: "AS_DECISION_SIGNAL",
		Children: []serial.Dict{{
			NodeName: "IF_THEN_ELSE",
			Children: []serial.Dict{
				{NodeName: "GT", Children: []serial.Dict{{NodeName: "CONST_ONE"}, {NodeName: "CONST_ZERO"}}},
				{NodeName: "CONST_ONE"},
				{NodeName: "CONST_NEG_ONE"},
			},
		}},
	}
	putRule(t, repo, "decision.always-buy.v1", semtype.DecisionSignal, always)

	provider := &fakeProvider{report: analysis.New("AAPL", "2026-01-01T00:00:00Z", 1, nil)}
	a := newAdvisor(t, provider, repo)

	// An aggressive profile weighs decision at 0.7, clearing the 0.6
	// STRONG_BUY boundary; the default moderate weighting (0.6) only
	// reaches the Buy/StrongBuy boundary exactly, which classifies Buy.
	out, err := a.Advise(context.Background(), "AAPL", domain.InvestmentProfile{RiskAppetite: domain.RiskAppetiteAggressive}, domain.HorizonShort)
	require.NoError(t, err)

	require.Equal(t, "STRONG_BUY", out.FinalDecision.Label)
	require.Equal(t, action.Buy, out.FinalAction.ActionType)
	require.Greater(t, out.FinalAction.PositionSizePct, 0.0)
	require.Len(t, out.FinalDecision.TriggeredRules, 1)
	require.Equal(t, "decision.always-buy.v1", out.FinalDecision.TriggeredRules[0].RuleID)
}

// TestE3_RiskDominatesDecisionYieldsHoldWithHighRiskLabel is spec.md E3's
// qualitative shape: a positive decision signal outweighed by a maxed-out
// risk signal under the default meta-weights collapses to HOLD with
// RISK_HIGH, and final_risk is never diluted by the decision score
// (spec.md P4's safety property, exercised end to end through Advise).
func TestE3_RiskDominatesDecisionYieldsHoldWithHighRiskLabel(t *testing.T) {
	repo := ruledb.NewMemoryRepository()
	putRule(t, repo, "decision.moderate.v1", semtype.DecisionSignal, serial.Dict{
		NodeName: "AS_DECISION_SIGNAL",
		Children: []serial.Dict{{NodeName: "CONST_ONE"}},
	})
	putRule(t, repo, "risk.max.v1", semtype.RiskLevel, serial.Dict{
		NodeName: "AS_RISK_LEVEL",
		Children: []serial.Dict{{NodeName: "CONST_ONE"}},
	})

	provider := &fakeProvider{report: analysis.New("AAPL", "2026-01-01T00:00:00Z", 1, nil)}
	a := newAdvisor(t, provider, repo)

	out, err := a.Advise(context.Background(), "AAPL", domain.InvestmentProfile{RiskAppetite: domain.RiskAppetiteModerate}, domain.HorizonShort)
	require.NoError(t, err)

	require.Equal(t, "RISK_HIGH", out.FinalRisk.Label)
	require.Equal(t, "HOLD", out.FinalDecision.Label)
}

func TestAdvise_AnalysisAcquisitionFailurePropagates(t *testing.T) {
	repo := ruledb.NewMemoryRepository()
	provider := &fakeProvider{err: errors.New("upstream unavailable")}
	a := newAdvisor(t, provider, repo)

	_, err := a.Advise(context.Background(), "AAPL", domain.InvestmentProfile{}, domain.HorizonShort)
	require.Error(t, err)
}
