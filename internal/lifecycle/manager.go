// Package lifecycle enforces the rule state machine: create (binding an
// existing endpoint or creating one inline), edit, enable, disable and
// soft delete. A single writer mutex serializes rule mutations with
// endpoint deletion so the check-then-act sequences cannot race.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/logger"
	"github.com/Ning0612/Regsync/internal/registry"
	"github.com/Ning0612/Regsync/internal/store"
)

// Manager drives the rule lifecycle
type Manager struct {
	// mu is the single writer lock covering every check-then-act
	// sequence over the rules and endpoints collections
	mu        sync.Mutex
	rules     store.RuleStore
	endpoints *registry.Registry
	log       logger.Logger
}

// NewManager creates a rule lifecycle manager
func NewManager(rules store.RuleStore, endpoints *registry.Registry, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Get()
	}
	return &Manager{
		rules:     rules,
		endpoints: endpoints,
		log:       log,
	}
}

// RuleSpec carries the operator-supplied fields of a new rule. Exactly
// one of EndpointID and NewEndpoint must be set: the former binds an
// existing destination, the latter creates one inline.
type RuleSpec struct {
	Name        string
	Description string
	ProjectID   string
	Trigger     domain.TriggerSpec

	EndpointID  string
	NewEndpoint *registry.CreateSpec
}

// CreateRule validates and persists a new rule in the Disabled state.
// With NewEndpoint set, the endpoint is created first (a rule cannot
// exist without a valid destination); if rule creation then fails the
// fresh endpoint is removed again so no orphan is left behind.
func (m *Manager) CreateRule(ctx context.Context, spec RuleSpec) (domain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if (spec.EndpointID == "") == (spec.NewEndpoint == nil) {
		return domain.Rule{}, fmt.Errorf("%w: exactly one of an endpoint id or a new endpoint is required", domain.ErrValidation)
	}

	endpointID := spec.EndpointID
	createdInline := false

	if spec.NewEndpoint != nil {
		ep, err := m.endpoints.Create(ctx, *spec.NewEndpoint)
		if err != nil {
			return domain.Rule{}, fmt.Errorf("creating destination endpoint: %w", err)
		}
		endpointID = ep.ID
		createdInline = true
	} else {
		if _, err := m.endpoints.Get(ctx, endpointID); err != nil {
			return domain.Rule{}, fmt.Errorf("resolving destination endpoint: %w", err)
		}
	}

	now := time.Now().UTC()
	rule := domain.Rule{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(spec.Name),
		Description: spec.Description,
		Enabled:     false,
		ProjectID:   spec.ProjectID,
		EndpointID:  endpointID,
		Trigger:     spec.Trigger,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := rule.Validate()
	if err == nil {
		err = m.rules.CreateRule(ctx, rule)
	}
	if err != nil {
		if createdInline {
			// Compensating delete: take the fresh endpoint back out so
			// the failed composite leaves no orphan.
			if delErr := m.endpoints.ForceDelete(ctx, endpointID); delErr != nil {
				m.log.Error("failed to roll back inline endpoint",
					"endpoint_id", endpointID, "error", delErr)
			}
		}
		return domain.Rule{}, err
	}

	m.log.Info("rule created", "rule", rule.Name, "endpoint_id", endpointID)
	return rule, nil
}

// RulePatch carries a partial rule update; nil fields are left
// unchanged. Name, description and trigger are editable regardless of
// enablement; EndpointID only while the rule is disabled.
type RulePatch struct {
	Name        *string
	Description *string
	Trigger     *domain.TriggerSpec
	ProjectID   *string
	EndpointID  *string
}

// EditRule applies a partial update. Changing the destination of an
// enabled rule fails with domain.ErrReadOnly.
func (m *Manager) EditRule(ctx context.Context, id string, patch RulePatch) (domain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, err := m.rules.GetRule(ctx, id)
	if err != nil {
		return domain.Rule{}, err
	}
	if rule.Deleted {
		return domain.Rule{}, fmt.Errorf("%w: rule %s", domain.ErrNotFound, id)
	}

	if patch.EndpointID != nil && *patch.EndpointID != rule.EndpointID {
		if rule.Enabled {
			return domain.Rule{}, fmt.Errorf("%w: disable rule %s before changing its destination", domain.ErrReadOnly, rule.Name)
		}
		if _, err := m.endpoints.Get(ctx, *patch.EndpointID); err != nil {
			return domain.Rule{}, fmt.Errorf("resolving destination endpoint: %w", err)
		}
		rule.EndpointID = *patch.EndpointID
	}
	if patch.Name != nil {
		rule.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		rule.Description = *patch.Description
	}
	if patch.Trigger != nil {
		rule.Trigger = *patch.Trigger
	}
	if patch.ProjectID != nil {
		rule.ProjectID = *patch.ProjectID
	}

	if err := rule.Validate(); err != nil {
		return domain.Rule{}, err
	}

	rule.UpdatedAt = time.Now().UTC()
	if err := m.rules.UpdateRule(ctx, rule); err != nil {
		return domain.Rule{}, err
	}
	return rule, nil
}

// EditDestination applies a partial update to the rule's destination
// endpoint (URL, credentials, TLS flag). Forbidden while the rule is
// enabled.
func (m *Manager) EditDestination(ctx context.Context, ruleID string, patch registry.Patch) (domain.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, err := m.rules.GetRule(ctx, ruleID)
	if err != nil {
		return domain.Endpoint{}, err
	}
	if rule.Deleted {
		return domain.Endpoint{}, fmt.Errorf("%w: rule %s", domain.ErrNotFound, ruleID)
	}
	if rule.Enabled {
		return domain.Endpoint{}, fmt.Errorf("%w: disable rule %s before changing its destination", domain.ErrReadOnly, rule.Name)
	}

	return m.endpoints.Update(ctx, rule.EndpointID, patch)
}

// Enable transitions a rule from Disabled to Enabled. Only referential
// existence of the destination is checked; enabling does not probe.
func (m *Manager) Enable(ctx context.Context, id string) (domain.Rule, error) {
	return m.setEnabled(ctx, id, true)
}

// Disable transitions a rule from Enabled to Disabled. Jobs already
// spawned keep running; only future triggering stops.
func (m *Manager) Disable(ctx context.Context, id string) (domain.Rule, error) {
	return m.setEnabled(ctx, id, false)
}

func (m *Manager) setEnabled(ctx context.Context, id string, enabled bool) (domain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, err := m.rules.GetRule(ctx, id)
	if err != nil {
		return domain.Rule{}, err
	}
	if rule.Deleted {
		return domain.Rule{}, fmt.Errorf("%w: rule %s", domain.ErrNotFound, id)
	}
	if rule.Enabled == enabled {
		return rule, nil
	}

	if enabled {
		if _, err := m.endpoints.Get(ctx, rule.EndpointID); err != nil {
			return domain.Rule{}, fmt.Errorf("resolving destination endpoint: %w", err)
		}
	}

	rule.Enabled = enabled
	rule.UpdatedAt = time.Now().UTC()
	if err := m.rules.UpdateRule(ctx, rule); err != nil {
		return domain.Rule{}, err
	}

	m.log.Info("rule state changed", "rule", rule.Name, "enabled", enabled)
	return rule, nil
}

// DeleteRule soft-deletes a disabled rule. Enabled rules must be
// disabled first; historical jobs are kept for audit.
func (m *Manager) DeleteRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, err := m.rules.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if rule.Deleted {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, id)
	}
	if rule.Enabled {
		return fmt.Errorf("%w: rule %s is enabled", domain.ErrPrecondition, rule.Name)
	}

	rule.Deleted = true
	rule.UpdatedAt = time.Now().UTC()
	if err := m.rules.UpdateRule(ctx, rule); err != nil {
		return err
	}

	m.log.Info("rule deleted", "rule", rule.Name)
	return nil
}

// DeleteEndpoint removes an endpoint under the same writer mutex that
// guards rule creation, so a rule cannot start referencing the endpoint
// between the usage check and the delete.
func (m *Manager) DeleteEndpoint(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.endpoints.Delete(ctx, id)
}

// UpdateEndpoint applies a partial endpoint update. An endpoint that is
// the destination of an enabled rule is read-only.
func (m *Manager) UpdateEndpoint(ctx context.Context, id string, patch registry.Patch) (domain.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	enabledRefs, err := m.rules.CountRulesByEndpoint(ctx, id, true)
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("failed to check endpoint usage: %w", err)
	}
	if enabledRefs > 0 {
		return domain.Endpoint{}, fmt.Errorf("%w: endpoint is in use by %d enabled rule(s)", domain.ErrReadOnly, enabledRefs)
	}

	return m.endpoints.Update(ctx, id, patch)
}

// NameAvailable reports whether a rule name is free among non-deleted
// rules. The console checks this while the operator types.
func (m *Manager) NameAvailable(ctx context.Context, name string) (bool, error) {
	rules, err := m.rules.ListRules(ctx, false)
	if err != nil {
		return false, err
	}
	for _, r := range rules {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return false, nil
		}
	}
	return true, nil
}
