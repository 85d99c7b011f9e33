package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Ning0612/Regsync/internal/domain"
)

// Memory is an in-memory Store used by tests and embedded callers.
// Records are kept in insertion order to make listings deterministic.
type Memory struct {
	mu        sync.RWMutex
	endpoints []domain.Endpoint
	rules     []domain.Rule
	jobs      []domain.Job
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) CreateEndpoint(ctx context.Context, ep domain.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.endpoints {
		if existing.Name == ep.Name {
			return fmt.Errorf("%w: endpoint name %q", domain.ErrConflict, ep.Name)
		}
		if existing.URL == ep.URL {
			return fmt.Errorf("%w: endpoint URL %q", domain.ErrConflict, ep.URL)
		}
	}

	m.endpoints = append(m.endpoints, ep)
	return nil
}

func (m *Memory) UpdateEndpoint(ctx context.Context, ep domain.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, existing := range m.endpoints {
		if existing.ID == ep.ID {
			idx = i
			continue
		}
		if existing.Name == ep.Name {
			return fmt.Errorf("%w: endpoint name %q", domain.ErrConflict, ep.Name)
		}
		if existing.URL == ep.URL {
			return fmt.Errorf("%w: endpoint URL %q", domain.ErrConflict, ep.URL)
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, ep.ID)
	}

	m.endpoints[idx] = ep
	return nil
}

func (m *Memory) GetEndpoint(ctx context.Context, id string) (domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ep := range m.endpoints {
		if ep.ID == id {
			return ep, nil
		}
	}
	return domain.Endpoint{}, fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, id)
}

func (m *Memory) ListEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Endpoint, len(m.endpoints))
	copy(out, m.endpoints)
	return out, nil
}

func (m *Memory) DeleteEndpoint(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, ep := range m.endpoints {
		if ep.ID == id {
			m.endpoints = append(m.endpoints[:i], m.endpoints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, id)
}

func (m *Memory) CreateRule(ctx context.Context, r domain.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.rules {
		// Soft-deleted rules do not block name reuse
		if !existing.Deleted && strings.EqualFold(existing.Name, r.Name) {
			return fmt.Errorf("%w: rule name %q", domain.ErrConflict, r.Name)
		}
	}

	m.rules = append(m.rules, r)
	return nil
}

func (m *Memory) UpdateRule(ctx context.Context, r domain.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, existing := range m.rules {
		if existing.ID == r.ID {
			idx = i
			continue
		}
		if !existing.Deleted && !r.Deleted && strings.EqualFold(existing.Name, r.Name) {
			return fmt.Errorf("%w: rule name %q", domain.ErrConflict, r.Name)
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, r.ID)
	}

	m.rules[idx] = r
	return nil
}

func (m *Memory) GetRule(ctx context.Context, id string) (domain.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Rule{}, fmt.Errorf("%w: rule %s", domain.ErrNotFound, id)
}

func (m *Memory) ListRules(ctx context.Context, includeDeleted bool) ([]domain.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Rule
	for _, r := range m.rules {
		if r.Deleted && !includeDeleted {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) CountRulesByEndpoint(ctx context.Context, endpointID string, enabledOnly bool) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.rules {
		if r.Deleted || r.EndpointID != endpointID {
			continue
		}
		if enabledOnly && !r.Enabled {
			continue
		}
		count++
	}
	return count, nil
}

func (m *Memory) CreateJob(ctx context.Context, j domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.jobs {
		if existing.ID == j.ID {
			return fmt.Errorf("%w: job %s", domain.ErrConflict, j.ID)
		}
	}

	m.jobs = append(m.jobs, j)
	return nil
}

func (m *Memory) UpdateJob(ctx context.Context, j domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.jobs {
		if existing.ID == j.ID {
			m.jobs[i] = j
			return nil
		}
	}
	return fmt.Errorf("%w: job %s", domain.ErrNotFound, j.ID)
}

func (m *Memory) GetJob(ctx context.Context, id string) (domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, j := range m.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return domain.Job{}, fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
}

func (m *Memory) ListJobs(ctx context.Context) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Job, len(m.jobs))
	copy(out, m.jobs)
	return out, nil
}

func (m *Memory) ListJobsByRule(ctx context.Context, ruleID string) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Job
	for _, j := range m.jobs {
		if j.RuleID == ruleID {
			out = append(out, j)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store
func (m *Memory) Close() error {
	return nil
}
