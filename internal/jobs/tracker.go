// Package jobs records replication job instances and validates their
// status transitions. The external engine owns execution; this tracker
// only indexes what it reports.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/logger"
	"github.com/Ning0612/Regsync/internal/store"
)

// Tracker records jobs and their lifecycle
type Tracker struct {
	store store.JobStore
	log   logger.Logger
}

// NewTracker creates a job tracker
func NewTracker(jobStore store.JobStore, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.Get()
	}
	return &Tracker{store: jobStore, log: log}
}

// Record persists a newly spawned job. An empty status defaults to
// pending; the id and timestamps are assigned here.
func (t *Tracker) Record(ctx context.Context, job domain.Job) (domain.Job, error) {
	if job.Status == "" {
		job.Status = domain.JobPending
	}
	job.ID = uuid.NewString()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	if err := job.Validate(); err != nil {
		return domain.Job{}, err
	}

	if err := t.store.CreateJob(ctx, job); err != nil {
		return domain.Job{}, err
	}

	t.log.Debug("job recorded", "job_id", job.ID, "rule_id", job.RuleID,
		"repository", job.Repository, "status", string(job.Status))
	return job, nil
}

// UpdateStatus applies a status transition reported by the engine.
// A transition outside the status graph is logged and rejected with
// domain.ErrInvalidTransition; it points at a collaborator bug, not
// user error.
func (t *Tracker) UpdateStatus(ctx context.Context, jobID string, next domain.JobStatus) (domain.Job, error) {
	if !next.IsValid() {
		return domain.Job{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, next)
	}

	job, err := t.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}

	if !job.Status.CanTransitionTo(next) {
		t.log.Error("illegal job status transition rejected",
			"job_id", jobID, "from", string(job.Status), "to", string(next))
		return domain.Job{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, job.Status, next)
	}

	job.Status = next
	job.UpdatedAt = time.Now().UTC()
	if err := t.store.UpdateJob(ctx, job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// Get returns a single job record
func (t *Tracker) Get(ctx context.Context, jobID string) (domain.Job, error) {
	return t.store.GetJob(ctx, jobID)
}

// ListByRule returns the rule's jobs in creation order
func (t *Tracker) ListByRule(ctx context.Context, ruleID string) ([]domain.Job, error) {
	return t.store.ListJobsByRule(ctx, ruleID)
}
