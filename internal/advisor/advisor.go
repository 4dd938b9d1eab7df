// Package advisor implements the Advisor Orchestrator (spec.md §4.9): the
// top-level composition that, given a ticker and an investment profile,
// acquires an Analysis Report, runs the Rules Orchestrator per purpose,
// aggregates and labels the result, maps it to a trading action, and
// assembles the final AdvisorReport (spec.md §6.3) with evidence
// preserved.
package advisor

import (
	"context"
	"time"

	"github.com/aristath/arduino-trader/internal/analysis"
	"github.com/aristath/arduino-trader/internal/domain"
	"github.com/aristath/arduino-trader/internal/rulesengine/action"
	"github.com/aristath/arduino-trader/internal/rulesengine/aggregator"
	"github.com/aristath/arduino-trader/internal/rulesengine/explain"
	"github.com/aristath/arduino-trader/internal/rulesengine/orchestrator"
	"github.com/aristath/arduino-trader/internal/rulesengine/personalization"
	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/rs/zerolog"
)

// AnalysisProvider is the external Analysis collaborator's interface
// (spec.md §1, §6.1): the core only consumes a finished report.
type AnalysisProvider interface {
	Acquire(ctx context.Context, ticker string) (*analysis.Report, error)
}

// PurposeSection is one of final_decision/final_risk/final_opportunity in
// an AdvisorReport (spec.md §6.3).
type PurposeSection struct {
	FinalScore     float64
	Label          string
	FinalRecommend bool
	TriggeredRules []explain.TriggeredRule
}

// AggregatedScores is the raw pre-meta-synthesis triplet (spec.md §6.3).
type AggregatedScores struct {
	RawDecisionScore    float64
	RawRiskScore        float64
	RawOpportunityScore float64
}

// Report is the Advisor's final output (spec.md §6.3).
type Report struct {
	Ticker             string
	GeneratedAtUTC     string
	GeneratedTimestamp int64

	FinalDecision    PurposeSection
	FinalRisk        PurposeSection
	FinalOpportunity PurposeSection
	AggregatedScores AggregatedScores
	FinalAction      action.TradingAction

	// Incomplete is set when the deadline elapsed after at least one
	// purpose's orchestrator run had returned (with or without triggered
	// rules) but before all three had; if none had returned, Advise
	// returns DeadlineExceededError instead (spec.md §5).
	Incomplete bool
}

// Config carries the aggregation/action constants sourced from
// config.RuleEngineConfig (spec.md §6.4).
type Config struct {
	Thresholds    aggregator.Thresholds
	Modes         [3]aggregator.Mode // decision, risk, opportunity
	ActionConsts  action.Constants
	DeadlineMS    int
}

// Advisor composes the Rules Orchestrator, Personalization Adapter, Score
// Aggregator and Action Mapper.
type Advisor struct {
	provider     AnalysisProvider
	orchestrator *orchestrator.Orchestrator
	cfg          Config
	log          zerolog.Logger
}

// New builds an Advisor.
func New(provider AnalysisProvider, orch *orchestrator.Orchestrator, cfg Config, log zerolog.Logger) *Advisor {
	return &Advisor{provider: provider, orchestrator: orch, cfg: cfg, log: log.With().Str("component", "advisor").Logger()}
}

// purposeResult bundles one purpose's orchestrator output for the
// deadline bookkeeping in Advise.
type purposeResult struct {
	purpose  semtype.Type
	triggers []orchestrator.TriggerInfo
	err      error
}

// Advise runs the full pipeline for (ticker, profile) (spec.md §4.9).
// Step 1 (Analysis Report acquisition) failures propagate with no partial
// report. Per-rule failures within step 3 are absorbed. Steps 4/5 are
// total functions on well-formed inputs.
func (a *Advisor) Advise(ctx context.Context, ticker string, profile domain.InvestmentProfile, horizon domain.Horizon) (*Report, error) {
	if a.cfg.DeadlineMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.DeadlineMS)*time.Millisecond)
		defer cancel()
	}

	report, err := a.provider.Acquire(ctx, ticker)
	if err != nil {
		return nil, &rerr.AnalysisReportUnavailableError{Ticker: ticker, Err: err}
	}

	adapted := personalization.Adapt(profile)

	purposes := []semtype.Type{semtype.DecisionSignal, semtype.RiskLevel, semtype.OpportunityRating}
	resultsCh := make(chan purposeResult, len(purposes))

	for _, p := range purposes {
		go func(purpose semtype.Type) {
			triggers, _, err := a.orchestrator.RunForPurpose(ctx, purpose, report, adapted.Selector)
			resultsCh <- purposeResult{purpose: purpose, triggers: triggers, err: err}
		}(p)
	}

	byPurpose := make(map[semtype.Type]purposeResult, len(purposes))
	completed := 0
	incomplete := false

collect:
	for completed < len(purposes) {
		select {
		case res := <-resultsCh:
			byPurpose[res.purpose] = res
			completed++
		case <-ctx.Done():
			if completed == 0 {
				return nil, &rerr.DeadlineExceededError{DeadlineMS: a.cfg.DeadlineMS}
			}
			incomplete = true
			break collect
		}
	}

	decisionScores := scoresOf(byPurpose[semtype.DecisionSignal].triggers)
	riskScores := scoresOf(byPurpose[semtype.RiskLevel].triggers)
	opportunityScores := scoresOf(byPurpose[semtype.OpportunityRating].triggers)

	agg := aggregator.Aggregate(decisionScores, riskScores, opportunityScores, a.cfg.Modes, adapted.MetaWeights)

	decisionLabel := aggregator.MapDecision(agg.FinalDecision, a.cfg.Thresholds)
	riskLabel := aggregator.MapRisk(agg.FinalRisk, a.cfg.Thresholds)
	opportunityLabel := aggregator.MapOpportunity(agg.FinalOpportunity, a.cfg.Thresholds)

	finalAction := action.Map(decisionLabel, agg.FinalRisk, agg.FinalOpportunity, horizon, adapted.ActionModifiers, a.cfg.ActionConsts)

	out := &Report{
		Ticker:             report.Ticker,
		GeneratedAtUTC:     report.GeneratedAtUTC,
		GeneratedTimestamp: report.GeneratedTimestamp,
		FinalDecision: PurposeSection{
			FinalScore:     agg.FinalDecision,
			Label:          string(decisionLabel),
			FinalRecommend: decisionLabel != aggregator.Hold,
			TriggeredRules: explain.FromTriggers(byPurpose[semtype.DecisionSignal].triggers),
		},
		FinalRisk: PurposeSection{
			FinalScore:     agg.FinalRisk,
			Label:          string(riskLabel),
			FinalRecommend: riskLabel != aggregator.RiskHigh,
			TriggeredRules: explain.FromTriggers(byPurpose[semtype.RiskLevel].triggers),
		},
		FinalOpportunity: PurposeSection{
			FinalScore:     agg.FinalOpportunity,
			Label:          string(opportunityLabel),
			FinalRecommend: opportunityLabel != aggregator.OppLow,
			TriggeredRules: explain.FromTriggers(byPurpose[semtype.OpportunityRating].triggers),
		},
		AggregatedScores: AggregatedScores{
			RawDecisionScore:    agg.RawDecision,
			RawRiskScore:        agg.RawRisk,
			RawOpportunityScore: agg.RawOpportunity,
		},
		FinalAction: finalAction,
		Incomplete:  incomplete,
	}

	if incomplete {
		a.log.Warn().Str("ticker", ticker).Msg("advisor request returned an incomplete report after its deadline elapsed")
	}

	return out, nil
}

func scoresOf(triggers []orchestrator.TriggerInfo) []float64 {
	out := make([]float64, len(triggers))
	for i, t := range triggers {
		out[i] = t.Score
	}
	return out
}
