// Package query serves filtered, sorted, paginated views of the job and
// rule collections. Filters are immutable per-call parameter objects;
// the engine keeps no state between calls.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Ning0612/Regsync/internal/domain"
	"github.com/Ning0612/Regsync/internal/store"
)

// DefaultPageSize applies when the caller leaves the page size unset
const DefaultPageSize = 15

// Engine answers read-only queries over jobs and rules
type Engine struct {
	jobs  store.JobStore
	rules store.RuleStore
}

// NewEngine creates a query engine over the given collections
func NewEngine(jobStore store.JobStore, ruleStore store.RuleStore) *Engine {
	return &Engine{jobs: jobStore, rules: ruleStore}
}

// JobFilter is the combinable predicate set over the job collection.
// Zero values mean "no constraint".
type JobFilter struct {
	// Statuses keeps jobs whose status is in the set
	Statuses []domain.JobStatus

	// Repository is a case-insensitive substring match
	Repository string

	// RuleID keeps jobs owned by the rule
	RuleID string

	// From is the inclusive lower bound on creation time
	From time.Time

	// To is the upper bound on creation time; it is widened to the end
	// of its calendar day before comparison
	To time.Time
}

func (f JobFilter) validate() error {
	for _, s := range f.Statuses {
		if !s.IsValid() {
			return fmt.Errorf("%w: unknown job status %q", domain.ErrValidation, s)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && endOfDay(f.To).Before(f.From) {
		return fmt.Errorf("%w: time range is empty (from %v, to %v)", domain.ErrValidation, f.From, f.To)
	}
	return nil
}

func (f JobFilter) matches(j domain.Job) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if j.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Repository != "" && !strings.Contains(strings.ToLower(j.Repository), strings.ToLower(f.Repository)) {
		return false
	}
	if f.RuleID != "" && j.RuleID != f.RuleID {
		return false
	}
	if !f.From.IsZero() && j.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && j.CreatedAt.After(endOfDay(f.To)) {
		return false
	}
	return true
}

// endOfDay widens the bound to 23:59:59.999999999 of its calendar day,
// matching the day-granularity search the console exposes
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).Add(24*time.Hour - time.Nanosecond)
}

// Page selects a one-based page of a result set
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() (Page, error) {
	if p.Number < 0 || p.Size < 0 {
		return Page{}, fmt.Errorf("%w: page number and size cannot be negative", domain.ErrValidation)
	}
	if p.Number == 0 {
		p.Number = 1
	}
	if p.Size == 0 {
		p.Size = DefaultPageSize
	}
	return p, nil
}

// JobPage is one page of matching jobs. Total counts the whole filtered
// set, independent of the slice returned.
type JobPage struct {
	Items []domain.Job
	Total int
	Page  Page
}

// Jobs returns the filtered job collection, newest first (creation time
// descending, id as the deterministic tie-break), sliced to the page.
func (e *Engine) Jobs(ctx context.Context, filter JobFilter, page Page) (JobPage, error) {
	if err := filter.validate(); err != nil {
		return JobPage{}, err
	}
	page, err := page.normalize()
	if err != nil {
		return JobPage{}, err
	}

	all, err := e.jobs.ListJobs(ctx)
	if err != nil {
		return JobPage{}, err
	}

	var matched []domain.Job
	for _, j := range all {
		if filter.matches(j) {
			matched = append(matched, j)
		}
	}

	sort.SliceStable(matched, func(i, k int) bool {
		if !matched[i].CreatedAt.Equal(matched[k].CreatedAt) {
			return matched[i].CreatedAt.After(matched[k].CreatedAt)
		}
		return matched[i].ID < matched[k].ID
	})

	return JobPage{
		Items: slicePage(matched, page),
		Total: len(matched),
		Page:  page,
	}, nil
}

// EnabledFilter is the tri-state enablement predicate for rules
type EnabledFilter int

const (
	// EnabledAny matches rules regardless of enablement
	EnabledAny EnabledFilter = iota
	// EnabledOnly matches enabled rules
	EnabledOnly
	// DisabledOnly matches disabled rules
	DisabledOnly
)

// RuleFilter is the combinable predicate set over the rule collection.
// Soft-deleted rules are always excluded.
type RuleFilter struct {
	// Enabled narrows by enablement state
	Enabled EnabledFilter

	// Name is a case-insensitive substring match
	Name string
}

func (f RuleFilter) matches(r domain.Rule) bool {
	switch f.Enabled {
	case EnabledOnly:
		if !r.Enabled {
			return false
		}
	case DisabledOnly:
		if r.Enabled {
			return false
		}
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Name)) {
		return false
	}
	return true
}

// RulePage is one page of matching rules
type RulePage struct {
	Items []domain.Rule
	Total int
	Page  Page
}

// Rules returns the filtered rule collection sorted by last start time
// descending: the creation time of the rule's newest job, falling back
// to the rule's own creation time for rules that never fired. Ties
// break on rule id.
func (e *Engine) Rules(ctx context.Context, filter RuleFilter, page Page) (RulePage, error) {
	page, err := page.normalize()
	if err != nil {
		return RulePage{}, err
	}

	all, err := e.rules.ListRules(ctx, false)
	if err != nil {
		return RulePage{}, err
	}

	var matched []domain.Rule
	for _, r := range all {
		if filter.matches(r) {
			matched = append(matched, r)
		}
	}

	lastStart := make(map[string]time.Time, len(matched))
	for _, r := range matched {
		ruleJobs, err := e.jobs.ListJobsByRule(ctx, r.ID)
		if err != nil {
			return RulePage{}, err
		}
		latest := r.CreatedAt
		for _, j := range ruleJobs {
			if j.CreatedAt.After(latest) {
				latest = j.CreatedAt
			}
		}
		lastStart[r.ID] = latest
	}

	sort.SliceStable(matched, func(i, k int) bool {
		ti, tk := lastStart[matched[i].ID], lastStart[matched[k].ID]
		if !ti.Equal(tk) {
			return ti.After(tk)
		}
		return matched[i].ID < matched[k].ID
	})

	return RulePage{
		Items: slicePage(matched, page),
		Total: len(matched),
		Page:  page,
	}, nil
}

// slicePage cuts the page out of the full result; an out-of-range page
// yields an empty slice, not an error
func slicePage[T any](items []T, page Page) []T {
	start := (page.Number - 1) * page.Size
	if start >= len(items) {
		return nil
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
