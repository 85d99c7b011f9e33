package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a replication job
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobError    JobStatus = "error"
	JobRetrying JobStatus = "retrying"
	JobStopped  JobStatus = "stopped"
	JobFinished JobStatus = "finished"
	JobCanceled JobStatus = "canceled"
)

// IsValid checks if the status is a known value
func (s JobStatus) IsValid() bool {
	switch s {
	case JobPending, JobRunning, JobError, JobRetrying, JobStopped, JobFinished, JobCanceled:
		return true
	}
	return false
}

// Terminal reports whether the status is a sink: no further transitions
func (s JobStatus) Terminal() bool {
	switch s {
	case JobFinished, JobCanceled, JobStopped:
		return true
	}
	return false
}

// jobTransitions is the directed status graph. The external engine
// drives the transitions; this core only validates them.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:  {JobRunning},
	JobRunning:  {JobError, JobFinished, JobStopped, JobCanceled},
	JobError:    {JobRetrying},
	JobRetrying: {JobRunning},
}

// CanTransitionTo reports whether a change from s to next is legal
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// JobOperation identifies the kind of replication work
type JobOperation string

const (
	// OpTransfer copies content to the destination
	OpTransfer JobOperation = "transfer"

	// OpDelete removes content mirrored to the destination
	OpDelete JobOperation = "delete"
)

// IsValid checks if the operation is a known value
func (o JobOperation) IsValid() bool {
	switch o {
	case OpTransfer, OpDelete:
		return true
	}
	return false
}

// Job is one asynchronous unit of replication work spawned by a rule.
// The external engine executes and mutates it; this core records it.
type Job struct {
	// ID is the opaque identifier assigned on recording
	ID string `json:"id"`

	// RuleID references the rule that spawned the job. Historical jobs
	// survive rule deletion; the reference then resolves to nothing.
	RuleID string `json:"rule_id"`

	// Repository is the target repository name
	Repository string `json:"repository"`

	// Operation is the kind of work performed
	Operation JobOperation `json:"operation"`

	// Status is the current lifecycle state
	Status JobStatus `json:"status"`

	// Tags optionally narrow the replicated content
	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the job record is properly formed
func (j Job) Validate() error {
	if j.RuleID == "" {
		return fmt.Errorf("%w: job has no owning rule", ErrValidation)
	}
	if j.Repository == "" {
		return fmt.Errorf("%w: job has no target repository", ErrValidation)
	}
	if !j.Operation.IsValid() {
		return fmt.Errorf("%w: invalid job operation: %s", ErrValidation, j.Operation)
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("%w: invalid job status: %s", ErrValidation, j.Status)
	}
	// Commas are not legal in image tags and would corrupt the stored
	// tag list
	for _, tag := range j.Tags {
		if tag == "" || strings.Contains(tag, ",") {
			return fmt.Errorf("%w: invalid tag: %q", ErrValidation, tag)
		}
	}
	return nil
}
