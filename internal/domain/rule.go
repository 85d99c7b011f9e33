package domain

import (
	"fmt"
	"time"
)

// TriggerKind identifies what causes a rule to fire
type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
	TriggerOnPush    TriggerKind = "on-push"
)

// IsValid checks if the trigger kind is a known value
func (t TriggerKind) IsValid() bool {
	switch t {
	case TriggerManual, TriggerScheduled, TriggerOnPush:
		return true
	}
	return false
}

// ScheduleType identifies the recurrence of a scheduled trigger
type ScheduleType string

const (
	ScheduleDaily  ScheduleType = "daily"
	ScheduleWeekly ScheduleType = "weekly"
)

// IsValid checks if the schedule type is a known value
func (s ScheduleType) IsValid() bool {
	switch s {
	case ScheduleDaily, ScheduleWeekly:
		return true
	}
	return false
}

// Schedule carries the parameters of a scheduled trigger
type Schedule struct {
	// Type selects daily or weekly recurrence
	Type ScheduleType `json:"type"`

	// Weekday is the day a weekly schedule fires on
	Weekday time.Weekday `json:"weekday,omitempty"`

	// Offtime is the offset from midnight (UTC) at which to fire
	Offtime time.Duration `json:"offtime"`
}

// Validate checks if the schedule is properly configured
func (s Schedule) Validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("%w: invalid schedule type: %s", ErrValidation, s.Type)
	}
	if s.Offtime < 0 || s.Offtime >= 24*time.Hour {
		return fmt.Errorf("%w: schedule offtime must be within one day, got %v", ErrValidation, s.Offtime)
	}
	if s.Type == ScheduleWeekly && (s.Weekday < time.Sunday || s.Weekday > time.Saturday) {
		return fmt.Errorf("%w: invalid schedule weekday: %d", ErrValidation, s.Weekday)
	}
	return nil
}

// TriggerSpec defines when a rule spawns replication jobs
type TriggerSpec struct {
	// Kind selects manual, scheduled or on-push triggering
	Kind TriggerKind `json:"kind"`

	// Schedule is required when Kind is scheduled, forbidden otherwise
	Schedule *Schedule `json:"schedule,omitempty"`
}

// Validate checks if the trigger spec is properly configured
func (t TriggerSpec) Validate() error {
	if !t.Kind.IsValid() {
		return fmt.Errorf("%w: invalid trigger kind: %s", ErrValidation, t.Kind)
	}
	if t.Kind == TriggerScheduled {
		if t.Schedule == nil {
			return fmt.Errorf("%w: scheduled trigger requires a schedule", ErrValidation)
		}
		return t.Schedule.Validate()
	}
	if t.Schedule != nil {
		return fmt.Errorf("%w: %s trigger cannot carry a schedule", ErrValidation, t.Kind)
	}
	return nil
}

// Rule defines a replication policy binding a source project to a
// destination endpoint
type Rule struct {
	// ID is the opaque identifier assigned on creation
	ID string `json:"id"`

	// Name is unique among non-deleted rules
	Name string `json:"name"`

	// Description is free-form operator text
	Description string `json:"description,omitempty"`

	// Enabled gates triggering; destination fields are read-only while set
	Enabled bool `json:"enabled"`

	// ProjectID scopes the source; empty means all projects
	ProjectID string `json:"project_id,omitempty"`

	// EndpointID references the destination endpoint
	EndpointID string `json:"endpoint_id"`

	// Trigger defines when the rule fires
	Trigger TriggerSpec `json:"trigger"`

	// Deleted marks the rule soft-deleted; excluded from default queries
	Deleted bool `json:"deleted,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the rule is properly configured
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name cannot be empty", ErrValidation)
	}
	if r.EndpointID == "" {
		return fmt.Errorf("%w: rule %s has no destination endpoint", ErrValidation, r.Name)
	}
	if err := r.Trigger.Validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return nil
}
