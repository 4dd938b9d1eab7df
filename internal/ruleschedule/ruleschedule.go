// Package ruleschedule runs periodic registry/repository sanity passes,
// adapted from trader-go's internal/scheduler (a thin robfig/cron wrapper
// around named Job.Run() jobs). The rule engine itself has no background
// work — rules are evaluated synchronously per advisor request — but the
// registry's register-then-freeze discipline and the rule repository's
// durability both benefit from a periodic health check, which is all this
// package schedules.
package ruleschedule

import (
	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job mirrors trader-go's scheduler.Job: a named, independently runnable
// unit of background work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler wraps a robfig/cron instance with structured logging around
// every job run.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New returns a stopped Scheduler; call Start to begin running jobs.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "ruleschedule").Logger(),
	}
}

// Start begins executing registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("rule schedule started")
}

// Stop drains in-flight jobs and waits for them to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("rule schedule stopped")
}

// AddJob registers job against a standard 6-field cron schedule (seconds
// included, per cron.WithSeconds above).
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("running job")
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Msg("job completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}

// RegistrySanityJob periodically confirms the Node Registry holds at least
// the expected number of node specs, catching a misconfigured startup
// (builtins.Register not called) before a real advisor request would
// surface it as UnknownNodeError. It does not check whether the registry
// is frozen.
type RegistrySanityJob struct {
	registry     *registry.Registry
	wantMinNodes int
	log          zerolog.Logger
}

// NewRegistrySanityJob returns a RegistrySanityJob expecting at least
// wantMinNodes entries in reg's catalog.
func NewRegistrySanityJob(reg *registry.Registry, wantMinNodes int, log zerolog.Logger) *RegistrySanityJob {
	return &RegistrySanityJob{registry: reg, wantMinNodes: wantMinNodes, log: log.With().Str("job", "registry_sanity").Logger()}
}

func (j *RegistrySanityJob) Name() string { return "registry_sanity" }

func (j *RegistrySanityJob) Run() error {
	n := j.registry.Len()
	if n < j.wantMinNodes {
		return &registrySizeError{got: n, want: j.wantMinNodes}
	}
	j.log.Debug().Int("node_count", n).Msg("registry sanity check passed")
	return nil
}

type registrySizeError struct {
	got, want int
}

func (e *registrySizeError) Error() string {
	return "ruleschedule: registry has fewer nodes than expected"
}

// RepositoryCacheRefreshJob periodically re-lists READY rules from the
// repository, warming the OS/sqlite page cache and surfacing a repository
// outage as a scheduled log line rather than only on the next advisor
// request.
type RepositoryCacheRefreshJob struct {
	repo     ruledb.Repository
	purposes []semtype.Type
	log      zerolog.Logger
}

// NewRepositoryCacheRefreshJob returns a job that lists every purpose in
// purposes against repo.
func NewRepositoryCacheRefreshJob(repo ruledb.Repository, purposes []semtype.Type, log zerolog.Logger) *RepositoryCacheRefreshJob {
	return &RepositoryCacheRefreshJob{repo: repo, purposes: purposes, log: log.With().Str("job", "repository_cache_refresh").Logger()}
}

func (j *RepositoryCacheRefreshJob) Name() string { return "repository_cache_refresh" }

func (j *RepositoryCacheRefreshJob) Run() error {
	total := 0
	for _, purpose := range j.purposes {
		records, err := j.repo.ListBy(purpose, rule.StatusReady)
		if err != nil {
			return err
		}
		total += len(records)
	}
	j.log.Debug().Int("ready_rules", total).Msg("repository cache refresh completed")
	return nil
}
