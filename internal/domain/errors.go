package domain

import "errors"

// Input errors - 輸入驗證層錯誤
var (
	// ErrValidation indicates malformed input (missing field, bad URL,
	// bad filter value); surfaced before any mutation
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a duplicate unique field (name or URL)
	ErrConflict = errors.New("already exists")

	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("not found")
)

// State errors - 狀態機層錯誤
var (
	// ErrPrecondition indicates the operation is forbidden in the
	// record's current state (delete in-use endpoint, delete enabled rule)
	ErrPrecondition = errors.New("precondition failed")

	// ErrReadOnly indicates an attempt to change destination fields of
	// an enabled rule
	ErrReadOnly = errors.New("destination is read-only while rule is enabled")

	// ErrInvalidTransition indicates an illegal job status change;
	// callers log it since it points at a collaborator bug
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Probe errors - 連線測試錯誤
var (
	// ErrConnectivity indicates a probe failure; carries transport detail
	ErrConnectivity = errors.New("connectivity check failed")

	// ErrProbeInFlight indicates another probe is outstanding for the
	// same endpoint or authoring session
	ErrProbeInFlight = errors.New("probe already in progress")
)
