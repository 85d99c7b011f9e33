package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/logger"
)

// IntervalRunner polls on a fixed interval and fires every enabled
// scheduled rule whose next slot has passed since the last firing
type IntervalRunner struct {
	config Config
	rules  RuleSource
	firer  RuleFirer
	log    logger.Logger

	// Runtime state
	mu          sync.RWMutex
	running     bool
	stopped     bool      // Track if stopped to prevent restart
	stopOnce    sync.Once // Ensure Stop() is idempotent
	closeOnce   sync.Once // Ensure stoppedChan is closed exactly once
	stopChan    chan struct{}
	stoppedChan chan struct{}

	// lastFired tracks the most recent firing per rule id so a slot
	// fires once even when the poll interval is much shorter. It is not
	// persisted: after a process restart the anchor falls back to the
	// rule's UpdatedAt, so a slot that already fired since the rule was
	// last touched can fire once more.
	lastFired map[string]time.Time

	// Statistics
	stats struct {
		lastRunTime    time.Time
		nextRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		lastError      string
	}
}

// NewIntervalRunner creates a new interval-based trigger runner
func NewIntervalRunner(config Config, rules RuleSource, firer RuleFirer, log logger.Logger) (*IntervalRunner, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", config.Interval)
	}
	if rules == nil {
		return nil, fmt.Errorf("rule source cannot be nil")
	}
	if firer == nil {
		return nil, fmt.Errorf("rule firer cannot be nil")
	}
	if log == nil {
		log = logger.Get()
	}

	return &IntervalRunner{
		config:      config,
		rules:       rules,
		firer:       firer,
		log:         log,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
		lastFired:   make(map[string]time.Time),
	}, nil
}

// Start begins the trigger loop
func (r *IntervalRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner is already running")
	}
	if r.stopped {
		return fmt.Errorf("runner cannot be restarted after stop")
	}

	r.running = true
	r.stats.nextRunTime = time.Now().Add(r.config.Interval)

	go r.run(ctx)

	return nil
}

// run is the main trigger loop
func (r *IntervalRunner) run(ctx context.Context) {
	// Ensure stoppedChan is closed exactly once and stopped flag is set
	defer r.closeOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.running = false
		r.mu.Unlock()
		close(r.stoppedChan)
	})

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case now := <-ticker.C:
			r.fireDue(ctx, now)
		}
	}
}

// fireDue fires every rule whose next scheduled slot has passed
func (r *IntervalRunner) fireDue(ctx context.Context, now time.Time) {
	r.mu.Lock()
	r.stats.lastRunTime = now
	r.stats.totalRuns++
	r.stats.nextRunTime = now.Add(r.config.Interval)
	r.mu.Unlock()

	rules, err := r.rules.EnabledScheduledRules(ctx)
	if err != nil {
		r.recordOutcome(err)
		return
	}

	var lastErr error
	for _, rule := range rules {
		if rule.Trigger.Schedule == nil {
			continue
		}
		if !r.due(rule, now) {
			continue
		}

		if err := r.firer.Fire(ctx, rule); err != nil {
			r.log.Warn("rule firing failed", "rule", rule.Name, "error", err)
			lastErr = err
			continue
		}

		r.mu.Lock()
		r.lastFired[rule.ID] = now
		r.mu.Unlock()
		r.log.Info("rule fired", "rule", rule.Name)
	}

	r.recordOutcome(lastErr)
}

// due reports whether the rule's next slot after its last firing has
// passed. A rule that never fired in this process is anchored at its
// enable time (UpdatedAt) so enabling does not fire retroactively;
// across restarts this means at most one duplicate firing per rule.
func (r *IntervalRunner) due(rule domain.Rule, now time.Time) bool {
	r.mu.RLock()
	anchor, ok := r.lastFired[rule.ID]
	r.mu.RUnlock()
	if !ok {
		anchor = rule.UpdatedAt
	}
	return !NextFire(*rule.Trigger.Schedule, anchor).After(now)
}

func (r *IntervalRunner) recordOutcome(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.stats.failedRuns++
		r.stats.lastError = err.Error()
	} else {
		r.stats.successfulRuns++
		r.stats.lastError = ""
	}
}

// Stop gracefully stops the runner
func (r *IntervalRunner) Stop() error {
	r.mu.RLock()
	if !r.running {
		r.mu.RUnlock()
		return fmt.Errorf("runner is not running")
	}
	r.mu.RUnlock()

	// Use sync.Once to ensure stop channel is closed only once
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})

	// Wait for the loop to exit
	<-r.stoppedChan

	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	return nil
}

// Status returns the current runner status
func (r *IntervalRunner) Status() *Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Status{
		Running:        r.running,
		LastRunTime:    r.stats.lastRunTime,
		NextRunTime:    r.stats.nextRunTime,
		TotalRuns:      r.stats.totalRuns,
		SuccessfulRuns: r.stats.successfulRuns,
		FailedRuns:     r.stats.failedRuns,
		LastError:      r.stats.lastError,
	}
}
