package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ning0612/Regsync/internal/config"
	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/lock"
	"github.com/Ning0612/Regsync/internal/logger"
	"github.com/Ning0612/Regsync/internal/store"
	"github.com/Ning0612/Regsync/internal/trigger"
)

// DaemonService runs the trigger loop for scheduled rules. It holds the
// data-dir file lock so only one daemon writes to the store at a time.
type DaemonService struct {
	mu     sync.RWMutex
	svc    *Service
	lock   *lock.FileLock
	runner trigger.Runner
	repos  RepositoryLister
}

// DaemonStatus reports the current daemon state
type DaemonStatus struct {
	Running     bool
	RunnerStats *trigger.Status
	LockHolder  *lock.LockInfo
}

// NewDaemonService builds a daemon on top of an assembled service
func NewDaemonService(svc *Service) (*DaemonService, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	fileLock, err := lock.NewFileLock(svc.Config().GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to create file lock: %w", err)
	}

	return &DaemonService{
		svc:  svc,
		lock: fileLock,
	}, nil
}

// SetRepositoryLister overrides the default per-firing repository
// enumeration
func (d *DaemonService) SetRepositoryLister(repos RepositoryLister) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.repos = repos
}

// Start acquires the writer lock and starts the trigger runner
func (d *DaemonService) Start(ctx context.Context, cfg config.TriggerConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.runner != nil {
		return fmt.Errorf("daemon is already running")
	}

	if err := d.lock.Acquire("daemon"); err != nil {
		return fmt.Errorf("failed to acquire writer lock: %w", err)
	}

	firer := newRuleFirer(d.svc.Jobs, d.repos, logger.Get())
	source := &scheduledRuleSource{rules: d.svc.store}

	runner, err := trigger.NewIntervalRunner(trigger.Config{
		Interval: cfg.Interval(),
	}, source, firer, logger.Get())
	if err != nil {
		d.lock.Release()
		return fmt.Errorf("failed to create trigger runner: %w", err)
	}

	if err := runner.Start(ctx); err != nil {
		d.lock.Release()
		return fmt.Errorf("failed to start trigger runner: %w", err)
	}

	d.runner = runner
	return nil
}

// Stop stops the trigger runner and releases the writer lock
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.runner == nil {
		return fmt.Errorf("daemon is not running")
	}

	if err := d.runner.Stop(); err != nil {
		return fmt.Errorf("failed to stop trigger runner: %w", err)
	}
	d.runner = nil

	if err := d.lock.Release(); err != nil {
		return fmt.Errorf("failed to release writer lock: %w", err)
	}
	return nil
}

// Status reports whether the daemon runs, its runner statistics and the
// lock holder if any
func (d *DaemonService) Status() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running: d.runner != nil,
	}
	if d.runner != nil {
		status.RunnerStats = d.runner.Status()
	}
	if holder, err := d.lock.GetHolder(); err == nil {
		status.LockHolder = holder
	}
	return status
}

// Close stops the daemon if running. The underlying service is owned by
// the caller and stays open.
func (d *DaemonService) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var lastErr error
	if d.runner != nil {
		if err := d.runner.Stop(); err != nil {
			lastErr = err
		}
		d.runner = nil
		if err := d.lock.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// EnabledScheduledRules returns the rules the trigger daemon would fire
func (s *Service) EnabledScheduledRules(ctx context.Context) ([]domain.Rule, error) {
	source := &scheduledRuleSource{rules: s.store}
	return source.EnabledScheduledRules(ctx)
}

// scheduledRuleSource yields the enabled, non-deleted rules carrying a
// scheduled trigger. It implements trigger.RuleSource.
type scheduledRuleSource struct {
	rules store.RuleStore
}

func (s *scheduledRuleSource) EnabledScheduledRules(ctx context.Context) ([]domain.Rule, error) {
	all, err := s.rules.ListRules(ctx, false)
	if err != nil {
		return nil, err
	}

	var scheduled []domain.Rule
	for _, r := range all {
		if r.Enabled && r.Trigger.Kind == domain.TriggerScheduled {
			scheduled = append(scheduled, r)
		}
	}
	return scheduled, nil
}
