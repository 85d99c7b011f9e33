// Package trigger periodically fires enabled rules whose schedule has
// come due, handing each firing to a RuleFirer. The actual replication
// engine is external; firing here means recording jobs for it.
package trigger

import (
	"context"
	"time"

	"github.com/Ning0612/Regsync/internal/domain"
)

// Runner defines the interface for trigger runners
type Runner interface {
	// Start begins the trigger loop
	Start(ctx context.Context) error

	// Stop gracefully stops the runner
	Stop() error

	// Status returns the current runner status
	Status() *Status
}

// Status represents the current state of a runner
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Config contains runner configuration
type Config struct {
	// Interval is the polling period for due schedules
	Interval time.Duration
}

// RuleFirer is what the runner invokes for each rule whose schedule is
// due. Implementations record the spawned jobs.
type RuleFirer interface {
	// Fire is called once per due rule per firing window
	Fire(ctx context.Context, rule domain.Rule) error
}

// RuleSource yields the rules eligible for scheduled firing
type RuleSource interface {
	// EnabledScheduledRules returns enabled, non-deleted rules with a
	// scheduled trigger
	EnabledScheduledRules(ctx context.Context) ([]domain.Rule, error)
}
