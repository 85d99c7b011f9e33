// Package store defines the persistence contracts consumed by the
// registry, lifecycle and job-tracking layers, plus an in-memory
// implementation. The sqlite implementation lives in store/sqlite.
package store

import (
	"context"

	"github.com/Ning0612/Regsync/internal/domain"
)

// EndpointStore persists endpoint records. Implementations enforce the
// unique constraints on name and URL, reporting domain.ErrConflict.
type EndpointStore interface {
	// CreateEndpoint persists a new endpoint; the caller assigns the id
	CreateEndpoint(ctx context.Context, ep domain.Endpoint) error

	// UpdateEndpoint replaces the record with the given id
	UpdateEndpoint(ctx context.Context, ep domain.Endpoint) error

	// GetEndpoint returns the endpoint or domain.ErrNotFound
	GetEndpoint(ctx context.Context, id string) (domain.Endpoint, error)

	// ListEndpoints returns all endpoints in creation order
	ListEndpoints(ctx context.Context) ([]domain.Endpoint, error)

	// DeleteEndpoint removes the record or returns domain.ErrNotFound
	DeleteEndpoint(ctx context.Context, id string) error
}

// RuleStore persists rule records. Name uniqueness is enforced among
// non-deleted rules only, so a deleted rule's name can be reused.
type RuleStore interface {
	// CreateRule persists a new rule; the caller assigns the id
	CreateRule(ctx context.Context, r domain.Rule) error

	// UpdateRule replaces the record with the given id
	UpdateRule(ctx context.Context, r domain.Rule) error

	// GetRule returns the rule (deleted or not) or domain.ErrNotFound
	GetRule(ctx context.Context, id string) (domain.Rule, error)

	// ListRules returns rules in creation order; soft-deleted rules are
	// included only when includeDeleted is set
	ListRules(ctx context.Context, includeDeleted bool) ([]domain.Rule, error)

	// CountRulesByEndpoint returns how many non-deleted rules reference
	// the endpoint; enabledOnly narrows the count to enabled rules
	CountRulesByEndpoint(ctx context.Context, endpointID string, enabledOnly bool) (int, error)
}

// JobStore persists job records for audit and search.
type JobStore interface {
	// CreateJob persists a new job; the caller assigns the id
	CreateJob(ctx context.Context, j domain.Job) error

	// UpdateJob replaces the record with the given id
	UpdateJob(ctx context.Context, j domain.Job) error

	// GetJob returns the job or domain.ErrNotFound
	GetJob(ctx context.Context, id string) (domain.Job, error)

	// ListJobs returns all jobs in creation order
	ListJobs(ctx context.Context) ([]domain.Job, error)

	// ListJobsByRule returns the rule's jobs in creation order
	ListJobsByRule(ctx context.Context, ruleID string) ([]domain.Job, error)
}

// Store bundles the three collections behind one handle.
type Store interface {
	EndpointStore
	RuleStore
	JobStore

	// Close releases the underlying resources
	Close() error
}
