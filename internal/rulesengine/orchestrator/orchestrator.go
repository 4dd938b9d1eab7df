// Package orchestrator implements the Rules Orchestrator (spec.md §4.5): it
// fetches rules matching a purpose, applies the personalization selector,
// evaluates the survivors — optionally concurrently — and returns scores
// joined back into deterministic, rule_id-sorted order. The worker-pool
// shape (job/result channels drained by a fixed goroutine count) is
// adapted from the teacher's batch-evaluation worker pool.
package orchestrator

import (
	"context"
	"sort"
	"sync"

	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/rulesengine/node"
	"github.com/aristath/arduino-trader/internal/rulesengine/rerr"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
)

// TriggerInfo is the evidence record for one rule that produced a score
// (spec.md §4.5, GLOSSARY "Trigger").
type TriggerInfo struct {
	RuleID  string
	Name    string
	Score   float64
	Purpose semtype.Type
}

// FailureInfo records a rule that was selected but failed evaluation;
// excluded from Scores/Evidence, never propagated beyond this orchestrator
// (spec.md §4.4, §7).
type FailureInfo struct {
	RuleID string
	Err    error
}

// Selector is the personalization filter applied after fetching rules by
// purpose/status (spec.md §4.5 step 2).
type Selector func(rec ruledb.RuleRecord) bool

// Orchestrator evaluates rules for a purpose against a shared report. It
// is stateless per call (spec.md §4.5 "State machine: none").
type Orchestrator struct {
	repo        ruledb.Repository
	registry    ruleLoader
	parallelism int
}

// ruleLoader parses a RuleRecord's stored tree into an evaluable Rule. The
// repository MAY cache parsed trees keyed by (rule_id, version) (spec.md
// §4.5); any such cache would live behind this interface. RegistryLoader
// keeps none.
type ruleLoader interface {
	Load(rec ruledb.RuleRecord) (*rule.Rule, error)
}

// New builds an Orchestrator. parallelism bounds concurrent rule
// evaluations (spec.md §6.4 evaluation.parallelism); values <= 1 evaluate
// serially.
func New(repo ruledb.Repository, loader ruleLoader, parallelism int) *Orchestrator {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Orchestrator{repo: repo, registry: loader, parallelism: parallelism}
}

// RunForPurpose implements run_for_purpose (spec.md §4.5): fetch READY
// rules for purpose, apply selector, evaluate, and return scores/evidence
// in deterministic rule_id order regardless of completion order (P10).
// ctx cancellation stops in-flight evaluations from being joined; any
// results not yet produced are simply absent from the returned slices.
func (o *Orchestrator) RunForPurpose(ctx context.Context, purpose semtype.Type, report node.Report, selector Selector) ([]TriggerInfo, []FailureInfo, error) {
	records, err := o.repo.ListBy(purpose, rule.StatusReady)
	if err != nil {
		return nil, nil, &rerr.RepositoryUnavailableError{Err: err}
	}

	var selected []ruledb.RuleRecord
	for _, rec := range records {
		if selector == nil || selector(rec) {
			selected = append(selected, rec)
		}
	}
	// spec.md §4.5 step 5: empty scores is a valid, expected outcome.
	if len(selected) == 0 {
		return nil, nil, nil
	}

	triggers, failures := o.evaluateBatch(ctx, selected, report)

	sort.Slice(triggers, func(i, j int) bool { return triggers[i].RuleID < triggers[j].RuleID })
	sort.Slice(failures, func(i, j int) bool { return failures[i].RuleID < failures[j].RuleID })

	return triggers, failures, nil
}

type job struct {
	index int
	rec   ruledb.RuleRecord
}

type result struct {
	index   int
	trigger *TriggerInfo
	failure *FailureInfo
}

func (o *Orchestrator) evaluateBatch(ctx context.Context, recs []ruledb.RuleRecord, report node.Report) ([]TriggerInfo, []FailureInfo) {
	n := len(recs)
	jobs := make(chan job, n)
	results := make(chan result, n)

	workers := o.parallelism
	if n < workers {
		workers = n
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.worker(ctx, jobs, results, report)
		}()
	}

	for idx, rec := range recs {
		jobs <- job{index: idx, rec: rec}
	}
	close(jobs)

	wg.Wait()
	close(results)

	triggers := make([]TriggerInfo, 0, n)
	failures := make([]FailureInfo, 0)
	for res := range results {
		if res.trigger != nil {
			triggers = append(triggers, *res.trigger)
		}
		if res.failure != nil {
			failures = append(failures, *res.failure)
		}
	}
	return triggers, failures
}

func (o *Orchestrator) worker(ctx context.Context, jobs <-chan job, results chan<- result, report node.Report) {
	for j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r, err := o.registry.Load(j.rec)
		if err != nil {
			results <- result{index: j.index, failure: &FailureInfo{RuleID: j.rec.RuleID, Err: err}}
			continue
		}

		score, err := r.Execute(report)
		if err != nil {
			results <- result{index: j.index, failure: &FailureInfo{RuleID: j.rec.RuleID, Err: err}}
			continue
		}

		results <- result{index: j.index, trigger: &TriggerInfo{
			RuleID:  j.rec.RuleID,
			Name:    j.rec.Name,
			Score:   score,
			Purpose: j.rec.Purpose,
		}}
	}
}

// RegistryLoader adapts a parse function into a ruleLoader, so the
// orchestrator itself stays free of registry/serial imports beyond this
// one seam. It keeps no cache; every Load calls the parse function.
type RegistryLoader struct {
	parse func(rec ruledb.RuleRecord) (*rule.Rule, error)
}

// NewRegistryLoader builds a RegistryLoader that delegates each Load to
// parse (cmd/server supplies one that runs serial.Parse and rule.New).
func NewRegistryLoader(parse func(rec ruledb.RuleRecord) (*rule.Rule, error)) *RegistryLoader {
	return &RegistryLoader{parse: parse}
}

func (l *RegistryLoader) Load(rec ruledb.RuleRecord) (*rule.Rule, error) {
	return l.parse(rec)
}
