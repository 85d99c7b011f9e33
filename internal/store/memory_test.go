package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Ning0612/Regsync/internal/domain"
)

func TestMemory_EndpointConflicts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := domain.Endpoint{ID: "ep-1", Name: "harbor", URL: "https://a.example.com"}
	if err := m.CreateEndpoint(ctx, first); err != nil {
		t.Fatalf("CreateEndpoint() error = %v", err)
	}

	dupName := domain.Endpoint{ID: "ep-2", Name: "harbor", URL: "https://b.example.com"}
	if err := m.CreateEndpoint(ctx, dupName); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate name, got %v", err)
	}

	dupURL := domain.Endpoint{ID: "ep-3", Name: "other", URL: "https://a.example.com"}
	if err := m.CreateEndpoint(ctx, dupURL); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate URL, got %v", err)
	}
}

func TestMemory_UpdateEndpoint(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.CreateEndpoint(ctx, domain.Endpoint{ID: "ep-1", Name: "one", URL: "https://one.example.com"})
	m.CreateEndpoint(ctx, domain.Endpoint{ID: "ep-2", Name: "two", URL: "https://two.example.com"})

	// Renaming onto another endpoint's name conflicts
	err := m.UpdateEndpoint(ctx, domain.Endpoint{ID: "ep-2", Name: "one", URL: "https://two.example.com"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// Updating own record with unchanged name is fine
	if err := m.UpdateEndpoint(ctx, domain.Endpoint{ID: "ep-1", Name: "one", URL: "https://one.example.com", Username: "bot"}); err != nil {
		t.Errorf("UpdateEndpoint() error = %v", err)
	}

	if err := m.UpdateEndpoint(ctx, domain.Endpoint{ID: "missing", Name: "x", URL: "https://x.example.com"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_RuleNameReuseAfterSoftDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CreateRule(ctx, domain.Rule{ID: "r-1", Name: "nightly"}); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	// Live duplicate blocks, case-insensitively
	if err := m.CreateRule(ctx, domain.Rule{ID: "r-2", Name: "Nightly"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// Soft delete frees the name
	if err := m.UpdateRule(ctx, domain.Rule{ID: "r-1", Name: "nightly", Deleted: true}); err != nil {
		t.Fatalf("UpdateRule() error = %v", err)
	}
	if err := m.CreateRule(ctx, domain.Rule{ID: "r-3", Name: "nightly"}); err != nil {
		t.Errorf("expected deleted name to be reusable, got %v", err)
	}
}

func TestMemory_ListRulesExcludesDeleted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.CreateRule(ctx, domain.Rule{ID: "r-1", Name: "live"})
	m.CreateRule(ctx, domain.Rule{ID: "r-2", Name: "gone", Deleted: true})

	visible, err := m.ListRules(ctx, false)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(visible) != 1 || visible[0].ID != "r-1" {
		t.Errorf("expected only the live rule, got %v", visible)
	}

	all, err := m.ListRules(ctx, true)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected both rules with includeDeleted, got %d", len(all))
	}
}

func TestMemory_CountRulesByEndpoint(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.CreateRule(ctx, domain.Rule{ID: "r-1", Name: "a", EndpointID: "ep-1", Enabled: true})
	m.CreateRule(ctx, domain.Rule{ID: "r-2", Name: "b", EndpointID: "ep-1"})
	m.CreateRule(ctx, domain.Rule{ID: "r-3", Name: "c", EndpointID: "ep-1", Deleted: true})
	m.CreateRule(ctx, domain.Rule{ID: "r-4", Name: "d", EndpointID: "ep-2"})

	count, err := m.CountRulesByEndpoint(ctx, "ep-1", false)
	if err != nil {
		t.Fatalf("CountRulesByEndpoint() error = %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 non-deleted references, got %d", count)
	}

	enabled, err := m.CountRulesByEndpoint(ctx, "ep-1", true)
	if err != nil {
		t.Fatalf("CountRulesByEndpoint() error = %v", err)
	}
	if enabled != 1 {
		t.Errorf("expected 1 enabled reference, got %d", enabled)
	}
}

func TestMemory_Jobs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job := domain.Job{ID: "j-1", RuleID: "r-1", Repository: "library/alpine", Operation: domain.OpTransfer, Status: domain.JobPending}
	if err := m.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := m.CreateJob(ctx, job); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate job id, got %v", err)
	}

	job.Status = domain.JobRunning
	if err := m.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}

	got, err := m.GetJob(ctx, "j-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != domain.JobRunning {
		t.Errorf("expected running status, got %s", got.Status)
	}

	m.CreateJob(ctx, domain.Job{ID: "j-2", RuleID: "r-2", Repository: "library/nginx", Operation: domain.OpTransfer, Status: domain.JobPending})

	byRule, err := m.ListJobsByRule(ctx, "r-1")
	if err != nil {
		t.Fatalf("ListJobsByRule() error = %v", err)
	}
	if len(byRule) != 1 || byRule[0].ID != "j-1" {
		t.Errorf("expected only j-1 for rule r-1, got %v", byRule)
	}
}
