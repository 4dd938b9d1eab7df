// Command server wires the Rule Engine and Advisor Orchestrator into a
// running HTTP process, following the teacher's cmd/server wiring order:
// config -> logger -> database -> domain services -> HTTP server.
package main

import (
	"os"

	"github.com/aristath/arduino-trader/internal/advisor"
	"github.com/aristath/arduino-trader/internal/analysis/market"
	"github.com/aristath/arduino-trader/internal/api"
	"github.com/aristath/arduino-trader/internal/config"
	"github.com/aristath/arduino-trader/internal/database"
	"github.com/aristath/arduino-trader/internal/reliability"
	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/ruleschedule"
	"github.com/aristath/arduino-trader/internal/rulesengine/action"
	"github.com/aristath/arduino-trader/internal/rulesengine/aggregator"
	"github.com/aristath/arduino-trader/internal/rulesengine/builtins"
	"github.com/aristath/arduino-trader/internal/rulesengine/orchestrator"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/aristath/arduino-trader/internal/rulesengine/serial"
	"github.com/aristath/arduino-trader/pkg/logger"
	"github.com/aristath/arduino-trader/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	db, err := database.New(database.Config{
		Path:    cfg.DataDir + "/rules.db",
		Profile: database.ProfileStandard,
		Name:    "rules",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open rules database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate rules database")
	}

	reg := registry.New()
	if err := builtins.Register(reg, builtins.Options{DivSafeEpsilon: cfg.RuleEngine.DivSafeEpsilon}); err != nil {
		log.Fatal().Err(err).Msg("failed to register builtin nodes")
	}

	rulesRepo := ruledb.NewSQLiteRepository(db, log)

	loader := orchestrator.NewRegistryLoader(func(rec ruledb.RuleRecord) (*rule.Rule, error) {
		root, err := serial.Parse(reg, rec.RootNode, "")
		if err != nil {
			return nil, err
		}
		return rule.New(rec.RuleID, rec.Name, rec.Description, rec.Version, rec.Status, rec.CreatedAtTS, rec.Metrics, root)
	})

	orch := orchestrator.New(rulesRepo, loader, cfg.RuleEngine.EvaluationParallelism)

	provider := market.NewProvider("3mo", log)

	advisorCfg := advisor.Config{
		Thresholds: aggregator.Thresholds{
			Decision:    [4]float64(cfg.RuleEngine.ThresholdsDecision),
			Risk:        [2]float64(cfg.RuleEngine.ThresholdsRisk),
			Opportunity: [2]float64(cfg.RuleEngine.ThresholdsOpportunity),
		},
		Modes: [3]aggregator.Mode{
			aggregator.Mode(cfg.RuleEngine.AggregationDecisionMode),
			aggregator.Mode(cfg.RuleEngine.AggregationRiskMode),
			aggregator.Mode(cfg.RuleEngine.AggregationOpportunityMode),
		},
		ActionConsts: action.Constants{
			BaseSize: map[aggregator.DecisionLabel]float64{
				aggregator.StrongSell: cfg.RuleEngine.ActionBaseSize["STRONG_SELL"],
				aggregator.Sell:       cfg.RuleEngine.ActionBaseSize["SELL"],
				aggregator.Hold:       cfg.RuleEngine.ActionBaseSize["HOLD"],
				aggregator.Buy:        cfg.RuleEngine.ActionBaseSize["BUY"],
				aggregator.StrongBuy:  cfg.RuleEngine.ActionBaseSize["STRONG_BUY"],
			},
			BaseTP: map[domain.Horizon]float64{
				domain.HorizonShort:  cfg.RuleEngine.ActionBaseTP["short"],
				domain.HorizonMedium: cfg.RuleEngine.ActionBaseTP["medium"],
				domain.HorizonLong:   cfg.RuleEngine.ActionBaseTP["long"],
			},
			BaseSL: map[domain.Horizon]float64{
				domain.HorizonShort:  cfg.RuleEngine.ActionBaseSL["short"],
				domain.HorizonMedium: cfg.RuleEngine.ActionBaseSL["medium"],
				domain.HorizonLong:   cfg.RuleEngine.ActionBaseSL["long"],
			},
			K:      cfg.RuleEngine.ActionK,
			KPrime: cfg.RuleEngine.ActionKPrime,
		},
		DeadlineMS: cfg.RuleEngine.EvaluationDeadlineMS,
	}

	adv := advisor.New(provider, orch, advisorCfg, log)

	healthSvc := reliability.NewDatabaseHealthService(db, "rules", cfg.DataDir+"/rules.db", log)

	sched := ruleschedule.New(log)
	if err := sched.AddJob("0 */10 * * * *", ruleschedule.NewRegistrySanityJob(reg, reg.Len(), log)); err != nil {
		log.Error().Err(err).Msg("failed to register registry sanity job")
	}
	if err := sched.AddJob("0 0 * * * *", ruleschedule.NewRepositoryCacheRefreshJob(rulesRepo, []semtype.Type{
		semtype.DecisionSignal, semtype.RiskLevel, semtype.OpportunityRating,
	}, log)); err != nil {
		log.Error().Err(err).Msg("failed to register repository cache refresh job")
	}
	sched.Start()
	defer sched.Stop()

	httpServer := api.New(api.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Advisor: adv,
		Rules:   rulesRepo,
		Health:  healthSvc,
	})

	log.Info().Int("port", cfg.Port).Msg("starting advisor server")
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
