// Package registry owns endpoint records: creation, partial update with
// sentinel-password handling, guarded deletion and name-filtered listing.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/store"
)

// UsageCounter reports how many rules reference an endpoint. The rule
// store satisfies it; a nil counter disables the in-use guard (used by
// the compensating delete during rule creation).
type UsageCounter interface {
	CountRulesByEndpoint(ctx context.Context, endpointID string, enabledOnly bool) (int, error)
}

// Registry manages endpoint records
type Registry struct {
	store store.EndpointStore
	usage UsageCounter
}

// New creates an endpoint registry. usage may be nil when no rule store
// exists yet; deletion is then unguarded.
func New(endpoints store.EndpointStore, usage UsageCounter) *Registry {
	return &Registry{store: endpoints, usage: usage}
}

// CreateSpec carries the operator-supplied fields of a new endpoint
type CreateSpec struct {
	Name     string
	URL      string
	Username string
	Password string
	Insecure bool
}

// Create validates and persists a new endpoint, returning it with an
// assigned id. Duplicate name or URL surfaces as domain.ErrConflict.
func (r *Registry) Create(ctx context.Context, spec CreateSpec) (domain.Endpoint, error) {
	ep := domain.Endpoint{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(spec.Name),
		URL:       strings.TrimRight(strings.TrimSpace(spec.URL), "/"),
		Username:  spec.Username,
		Password:  spec.Password,
		Insecure:  spec.Insecure,
		CreatedAt: time.Now().UTC(),
	}

	if err := ep.Validate(); err != nil {
		return domain.Endpoint{}, err
	}

	if err := r.store.CreateEndpoint(ctx, ep); err != nil {
		return domain.Endpoint{}, err
	}

	return ep.Redacted(), nil
}

// Patch carries a partial endpoint update; nil fields are left unchanged
type Patch struct {
	Name     *string
	URL      *string
	Username *string
	Password *string
	Insecure *bool
}

// Update applies a partial update. A password equal to the sentinel (or
// empty) means "untouched" and leaves the stored secret in place.
func (r *Registry) Update(ctx context.Context, id string, patch Patch) (domain.Endpoint, error) {
	ep, err := r.store.GetEndpoint(ctx, id)
	if err != nil {
		return domain.Endpoint{}, err
	}

	if patch.Name != nil {
		ep.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.URL != nil {
		ep.URL = strings.TrimRight(strings.TrimSpace(*patch.URL), "/")
	}
	if patch.Username != nil {
		ep.Username = *patch.Username
	}
	if patch.Password != nil && *patch.Password != "" && *patch.Password != domain.SentinelPassword {
		ep.Password = *patch.Password
	}
	if patch.Insecure != nil {
		ep.Insecure = *patch.Insecure
	}

	if err := ep.Validate(); err != nil {
		return domain.Endpoint{}, err
	}

	if err := r.store.UpdateEndpoint(ctx, ep); err != nil {
		return domain.Endpoint{}, err
	}

	return ep.Redacted(), nil
}

// Delete removes an endpoint. Any non-deleted rule referencing it,
// enabled or not, blocks the deletion with domain.ErrPrecondition.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.store.GetEndpoint(ctx, id); err != nil {
		return err
	}

	if r.usage != nil {
		refs, err := r.usage.CountRulesByEndpoint(ctx, id, false)
		if err != nil {
			return fmt.Errorf("failed to check endpoint usage: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: endpoint is referenced by %d rule(s)", domain.ErrPrecondition, refs)
		}
	}

	return r.store.DeleteEndpoint(ctx, id)
}

// ForceDelete removes an endpoint without the usage guard. It backs the
// compensating delete when rule creation fails after an inline endpoint
// creation succeeded.
func (r *Registry) ForceDelete(ctx context.Context, id string) error {
	return r.store.DeleteEndpoint(ctx, id)
}

// Get returns the endpoint with its password redacted
func (r *Registry) Get(ctx context.Context, id string) (domain.Endpoint, error) {
	ep, err := r.store.GetEndpoint(ctx, id)
	if err != nil {
		return domain.Endpoint{}, err
	}
	return ep.Redacted(), nil
}

// List returns endpoints, optionally narrowed by a case-insensitive
// substring match on the name. Passwords are redacted.
func (r *Registry) List(ctx context.Context, nameFilter string) ([]domain.Endpoint, error) {
	endpoints, err := r.store.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(nameFilter)
	var out []domain.Endpoint
	for _, ep := range endpoints {
		if needle != "" && !strings.Contains(strings.ToLower(ep.Name), needle) {
			continue
		}
		out = append(out, ep.Redacted())
	}
	return out, nil
}
