package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return New(m, m), m
}

func TestCreate_AssignsIDAndRedacts(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()

	ep, err := r.Create(ctx, CreateSpec{
		Name:     "  harbor  ",
		URL:      "https://registry.example.com/",
		Username: "bot",
		Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if ep.ID == "" {
		t.Error("expected an assigned id")
	}
	if ep.Name != "harbor" {
		t.Errorf("expected trimmed name, got %q", ep.Name)
	}
	if ep.URL != "https://registry.example.com" {
		t.Errorf("expected trailing slash stripped, got %q", ep.URL)
	}
	if ep.Password != domain.SentinelPassword {
		t.Errorf("expected sentinel password on the returned copy, got %q", ep.Password)
	}

	// The real secret reaches the store untouched
	stored, err := m.GetEndpoint(ctx, ep.ID)
	if err != nil {
		t.Fatalf("GetEndpoint() error = %v", err)
	}
	if stored.Password != "s3cret" {
		t.Errorf("expected stored secret, got %q", stored.Password)
	}
}

func TestCreate_Validation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	cases := []CreateSpec{
		{URL: "https://registry.example.com"},               // no name
		{Name: "harbor"},                                    // no URL
		{Name: "harbor", URL: "ftp://registry.example.com"}, // wrong scheme
	}
	for _, spec := range cases {
		if _, err := r.Create(ctx, spec); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Create(%+v): expected ErrValidation, got %v", spec, err)
		}
	}
}

func TestCreate_DuplicateNameOrURL(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Create(ctx, CreateSpec{Name: "harbor", URL: "https://a.example.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := r.Create(ctx, CreateSpec{Name: "harbor", URL: "https://b.example.com"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate name, got %v", err)
	}
	if _, err := r.Create(ctx, CreateSpec{Name: "other", URL: "https://a.example.com"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate URL, got %v", err)
	}
}

func TestUpdate_SentinelPasswordLeavesSecret(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()

	ep, err := r.Create(ctx, CreateSpec{Name: "harbor", URL: "https://a.example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The sentinel round-tripping back in must not overwrite the secret
	sentinel := domain.SentinelPassword
	if _, err := r.Update(ctx, ep.ID, Patch{Password: &sentinel}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	stored, _ := m.GetEndpoint(ctx, ep.ID)
	if stored.Password != "s3cret" {
		t.Errorf("sentinel overwrote the stored secret: %q", stored.Password)
	}

	// Empty password on update means "untouched" as well
	empty := ""
	if _, err := r.Update(ctx, ep.ID, Patch{Password: &empty}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	stored, _ = m.GetEndpoint(ctx, ep.ID)
	if stored.Password != "s3cret" {
		t.Errorf("empty password overwrote the stored secret: %q", stored.Password)
	}

	// A real value replaces it
	next := "n3w-secret"
	if _, err := r.Update(ctx, ep.ID, Patch{Password: &next}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	stored, _ = m.GetEndpoint(ctx, ep.ID)
	if stored.Password != "n3w-secret" {
		t.Errorf("expected replaced secret, got %q", stored.Password)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	ep, err := r.Create(ctx, CreateSpec{Name: "harbor", URL: "https://a.example.com", Username: "bot"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	name := "dr-site"
	updated, err := r.Update(ctx, ep.ID, Patch{Name: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "dr-site" {
		t.Errorf("expected renamed endpoint, got %q", updated.Name)
	}
	if updated.URL != "https://a.example.com" || updated.Username != "bot" {
		t.Errorf("unpatched fields changed: %+v", updated)
	}
}

func TestDelete_BlockedByAnyLiveRule(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()

	ep, err := r.Create(ctx, CreateSpec{Name: "harbor", URL: "https://a.example.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A disabled rule still blocks deletion
	m.CreateRule(ctx, domain.Rule{ID: "r-1", Name: "parked", EndpointID: ep.ID, Enabled: false})

	err = r.Delete(ctx, ep.ID)
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "1 rule") {
		t.Errorf("expected the reference count in the message, got %q", err)
	}

	// Soft-deleting the rule unblocks
	m.UpdateRule(ctx, domain.Rule{ID: "r-1", Name: "parked", EndpointID: ep.ID, Deleted: true})
	if err := r.Delete(ctx, ep.ID); err != nil {
		t.Errorf("Delete() after rule removal error = %v", err)
	}
}

func TestForceDelete_SkipsUsageGuard(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()

	ep, err := r.Create(ctx, CreateSpec{Name: "harbor", URL: "https://a.example.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.CreateRule(ctx, domain.Rule{ID: "r-1", Name: "ref", EndpointID: ep.ID})

	if err := r.ForceDelete(ctx, ep.ID); err != nil {
		t.Errorf("ForceDelete() error = %v", err)
	}
	if _, err := r.Get(ctx, ep.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after force delete, got %v", err)
	}
}

func TestList_NameFilterAndRedaction(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, spec := range []CreateSpec{
		{Name: "prod-harbor", URL: "https://prod.example.com", Password: "x"},
		{Name: "staging-harbor", URL: "https://staging.example.com", Password: "y"},
		{Name: "quay-mirror", URL: "https://quay.example.com"},
	} {
		if _, err := r.Create(ctx, spec); err != nil {
			t.Fatalf("Create(%s) error = %v", spec.Name, err)
		}
	}

	all, err := r.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(all))
	}
	for _, ep := range all {
		if ep.Password != "" && ep.Password != domain.SentinelPassword {
			t.Errorf("endpoint %s leaked its password", ep.Name)
		}
	}

	harbors, err := r.List(ctx, "HARBOR")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(harbors) != 2 {
		t.Errorf("expected 2 name matches, got %d", len(harbors))
	}
}
