package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the engine.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrIndexNotInitialized = errors.New("knowledge index not initialized")
	ErrEmptyDocument       = errors.New("document content is empty")
	ErrNegativeQuantity    = errors.New("quantity must be positive")
	ErrUnknownMetric       = errors.New("unknown leaderboard metric")
	ErrGoalTransition      = errors.New("goal transition not allowed")
	ErrGoalNotFound        = errors.New("goal not found")

	// ErrCollaboratorUnavailable marks an external collaborator failure.
	// It is absorbed by fallback paths and never surfaced to end users.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// PersistenceError reports a failed ledger or index write. The attempted
// payload is preserved so the caller can retry the exact write.
type PersistenceError struct {
	Op      string
	Path    string
	Payload any
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError creates a PersistenceError.
func NewPersistenceError(op, path string, payload any, err error) *PersistenceError {
	return &PersistenceError{Op: op, Path: path, Payload: payload, Err: err}
}
