package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/jobs"
	"github.com/Ning0612/Regsync/internal/logger"
)

// RepositoryLister enumerates the repositories a rule covers when it
// fires. The external replication engine resolves the project contents;
// without one the project scope itself is the unit of work.
type RepositoryLister interface {
	Repositories(ctx context.Context, rule domain.Rule) ([]string, error)
}

// projectLister is the default lister: one unit of work per firing,
// scoped to the rule's project (or the whole source when unscoped)
type projectLister struct{}

func (projectLister) Repositories(ctx context.Context, rule domain.Rule) ([]string, error) {
	if rule.ProjectID != "" {
		return []string{rule.ProjectID}, nil
	}
	return []string{"*"}, nil
}

// ruleFirer records one pending transfer job per covered repository.
// It implements trigger.RuleFirer.
type ruleFirer struct {
	tracker *jobs.Tracker
	repos   RepositoryLister
	log     logger.Logger
}

func newRuleFirer(tracker *jobs.Tracker, repos RepositoryLister, log logger.Logger) *ruleFirer {
	if repos == nil {
		repos = projectLister{}
	}
	if log == nil {
		log = logger.Get()
	}
	return &ruleFirer{tracker: tracker, repos: repos, log: log}
}

// Fire records the jobs a firing of rule spawns. It records as many
// jobs as it can and aggregates failures instead of failing fast.
func (f *ruleFirer) Fire(ctx context.Context, rule domain.Rule) error {
	repos, err := f.repos.Repositories(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to list repositories for rule %s: %w", rule.Name, err)
	}

	var errs []error
	for _, repo := range repos {
		job := domain.Job{
			RuleID:     rule.ID,
			Repository: repo,
			Operation:  domain.OpTransfer,
		}
		recorded, err := f.tracker.Record(ctx, job)
		if err != nil {
			errs = append(errs, fmt.Errorf("repository %s: %w", repo, err))
			continue
		}
		f.log.Info("job recorded",
			"rule", rule.Name,
			"job_id", recorded.ID,
			"repository", repo,
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("firing rule %s recorded %d job(s) with %d failure(s): %w",
			rule.Name, len(repos)-len(errs), len(errs), errors.Join(errs...))
	}
	return nil
}

// FireRule fires a rule by hand. Repositories narrows the firing; when
// empty the rule's own scope is used. Disabled or deleted rules cannot
// fire.
func (s *Service) FireRule(ctx context.Context, ruleID string, repositories []string) error {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.Deleted {
		return fmt.Errorf("%w: rule not found: %s", domain.ErrNotFound, ruleID)
	}
	if !rule.Enabled {
		return fmt.Errorf("%w: rule %s is disabled", domain.ErrPrecondition, rule.Name)
	}

	var lister RepositoryLister
	if len(repositories) > 0 {
		lister = staticLister(repositories)
	}
	firer := newRuleFirer(s.Jobs, lister, logger.Get())
	return firer.Fire(ctx, rule)
}

// staticLister fires exactly the repositories the operator named
type staticLister []string

func (l staticLister) Repositories(ctx context.Context, rule domain.Rule) ([]string, error) {
	return l, nil
}
