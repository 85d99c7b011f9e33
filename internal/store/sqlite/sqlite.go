// Package sqlite implements the store contracts on an embedded sqlite
// database. A single connection with WAL mode avoids "database is
// locked" errors under the one-writer-process model.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Ning0612/Regsync/internal/domain"
)

// Store implements store.Store on sqlite
type Store struct {
	db *sql.DB
}

// Open creates or opens the database under dataDir
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "regsync.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS endpoints (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		insecure INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_endpoints_name ON endpoints(name);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_endpoints_url ON endpoints(url);

	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 0,
		project_id TEXT NOT NULL DEFAULT '',
		endpoint_id TEXT NOT NULL,
		trigger_kind TEXT NOT NULL,
		schedule_type TEXT NOT NULL DEFAULT '',
		schedule_weekday INTEGER NOT NULL DEFAULT 0,
		schedule_offtime INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Soft-deleted rules do not block name reuse
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rules_name
		ON rules(name COLLATE NOCASE) WHERE deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_rules_endpoint ON rules(endpoint_id);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		repository TEXT NOT NULL,
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_rule_time ON jobs(rule_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// conflictError maps sqlite unique-constraint violations onto the
// domain error taxonomy, naming the offending field
func conflictError(err error) error {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	if sqlErr.ExtendedCode != sqlite3.ErrConstraintUnique && sqlErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return err
	}

	msg := sqlErr.Error()
	switch {
	case strings.Contains(msg, "endpoints.name"):
		return fmt.Errorf("%w: endpoint name", domain.ErrConflict)
	case strings.Contains(msg, "endpoints.url"):
		return fmt.Errorf("%w: endpoint URL", domain.ErrConflict)
	case strings.Contains(msg, "rules.name"):
		return fmt.Errorf("%w: rule name", domain.ErrConflict)
	default:
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
}

func (s *Store) CreateEndpoint(ctx context.Context, ep domain.Endpoint) error {
	query := `
		INSERT INTO endpoints (id, name, url, username, password, insecure, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		ep.ID, ep.Name, ep.URL, ep.Username, ep.Password, boolToInt(ep.Insecure), ep.CreatedAt)
	if err != nil {
		return conflictError(err)
	}
	return nil
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep domain.Endpoint) error {
	query := `
		UPDATE endpoints SET name = ?, url = ?, username = ?, password = ?, insecure = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		ep.Name, ep.URL, ep.Username, ep.Password, boolToInt(ep.Insecure), ep.ID)
	if err != nil {
		return conflictError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update endpoint: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, ep.ID)
	}
	return nil
}

func (s *Store) GetEndpoint(ctx context.Context, id string) (domain.Endpoint, error) {
	query := `
		SELECT id, name, url, username, password, insecure, created_at
		FROM endpoints WHERE id = ?
	`
	var ep domain.Endpoint
	var insecure int
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ep.ID, &ep.Name, &ep.URL, &ep.Username, &ep.Password, &insecure, &ep.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Endpoint{}, fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("failed to query endpoint: %w", err)
	}
	ep.Insecure = insecure != 0
	return ep, nil
}

func (s *Store) ListEndpoints(ctx context.Context) ([]domain.Endpoint, error) {
	query := `
		SELECT id, name, url, username, password, insecure, created_at
		FROM endpoints ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []domain.Endpoint
	for rows.Next() {
		var ep domain.Endpoint
		var insecure int
		if err := rows.Scan(&ep.ID, &ep.Name, &ep.URL, &ep.Username, &ep.Password, &insecure, &ep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		ep.Insecure = insecure != 0
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating endpoints: %w", err)
	}
	return endpoints, nil
}

func (s *Store) DeleteEndpoint(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, id)
	}
	return nil
}

func (s *Store) CreateRule(ctx context.Context, r domain.Rule) error {
	query := `
		INSERT INTO rules (id, name, description, enabled, project_id, endpoint_id,
			trigger_kind, schedule_type, schedule_weekday, schedule_offtime,
			deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	st, wd, ot := scheduleColumns(r.Trigger)
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Description, boolToInt(r.Enabled), r.ProjectID, r.EndpointID,
		string(r.Trigger.Kind), st, wd, ot,
		boolToInt(r.Deleted), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return conflictError(err)
	}
	return nil
}

func (s *Store) UpdateRule(ctx context.Context, r domain.Rule) error {
	query := `
		UPDATE rules SET name = ?, description = ?, enabled = ?, project_id = ?,
			endpoint_id = ?, trigger_kind = ?, schedule_type = ?,
			schedule_weekday = ?, schedule_offtime = ?, deleted = ?, updated_at = ?
		WHERE id = ?
	`
	st, wd, ot := scheduleColumns(r.Trigger)
	res, err := s.db.ExecContext(ctx, query,
		r.Name, r.Description, boolToInt(r.Enabled), r.ProjectID,
		r.EndpointID, string(r.Trigger.Kind), st, wd, ot,
		boolToInt(r.Deleted), r.UpdatedAt, r.ID)
	if err != nil {
		return conflictError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: rule %s", domain.ErrNotFound, r.ID)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, id string) (domain.Rule, error) {
	query := ruleSelect + ` WHERE id = ?`
	r, err := s.scanRule(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Rule{}, fmt.Errorf("%w: rule %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Rule{}, fmt.Errorf("failed to query rule: %w", err)
	}
	return r, nil
}

const ruleSelect = `
	SELECT id, name, description, enabled, project_id, endpoint_id,
		trigger_kind, schedule_type, schedule_weekday, schedule_offtime,
		deleted, created_at, updated_at
	FROM rules
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRule(row rowScanner) (domain.Rule, error) {
	var r domain.Rule
	var enabled, deleted, weekday int
	var kind, schedType string
	var offtime int64
	err := row.Scan(&r.ID, &r.Name, &r.Description, &enabled, &r.ProjectID, &r.EndpointID,
		&kind, &schedType, &weekday, &offtime,
		&deleted, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.Rule{}, err
	}
	r.Enabled = enabled != 0
	r.Deleted = deleted != 0
	r.Trigger = triggerFromColumns(kind, schedType, weekday, offtime)
	return r, nil
}

func (s *Store) ListRules(ctx context.Context, includeDeleted bool) ([]domain.Rule, error) {
	query := ruleSelect
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		r, err := s.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

func (s *Store) CountRulesByEndpoint(ctx context.Context, endpointID string, enabledOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM rules WHERE endpoint_id = ? AND deleted = 0`
	if enabledOnly {
		query += ` AND enabled = 1`
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, endpointID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return count, nil
}

func (s *Store) CreateJob(ctx context.Context, j domain.Job) error {
	query := `
		INSERT INTO jobs (id, rule_id, repository, operation, status, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.RuleID, j.Repository, string(j.Operation), string(j.Status),
		strings.Join(j.Tags, ","), j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return conflictError(err)
	}
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, j domain.Job) error {
	query := `
		UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, string(j.Status), j.UpdatedAt, j.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, j.ID)
	}
	return nil
}

const jobSelect = `
	SELECT id, rule_id, repository, operation, status, tags, created_at, updated_at
	FROM jobs
`

func scanJob(row rowScanner) (domain.Job, error) {
	var j domain.Job
	var op, status, tags string
	err := row.Scan(&j.ID, &j.RuleID, &j.Repository, &op, &status, &tags, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return domain.Job{}, err
	}
	j.Operation = domain.JobOperation(op)
	j.Status = domain.JobStatus(status)
	if tags != "" {
		j.Tags = strings.Split(tags, ",")
	}
	return j, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, jobSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return domain.Job{}, fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to query job: %w", err)
	}
	return j, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return s.queryJobs(ctx, jobSelect+` ORDER BY created_at, id`)
}

func (s *Store) ListJobsByRule(ctx context.Context, ruleID string) ([]domain.Job, error) {
	return s.queryJobs(ctx, jobSelect+` WHERE rule_id = ? ORDER BY created_at, id`, ruleID)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scheduleColumns(t domain.TriggerSpec) (string, int, int64) {
	if t.Schedule == nil {
		return "", 0, 0
	}
	return string(t.Schedule.Type), int(t.Schedule.Weekday), int64(t.Schedule.Offtime)
}

func triggerFromColumns(kind, schedType string, weekday int, offtime int64) domain.TriggerSpec {
	spec := domain.TriggerSpec{Kind: domain.TriggerKind(kind)}
	if schedType != "" {
		spec.Schedule = &domain.Schedule{
			Type:    domain.ScheduleType(schedType),
			Weekday: time.Weekday(weekday),
			Offtime: time.Duration(offtime),
		}
	}
	return spec
}
