package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the decision pipeline. Handlers map these onto HTTP
// codes; the orchestration layer uses them to decide whether a stage is
// retryable. Policy limit breaches are never errors; they are normal
// decision outcomes.
var (
	ErrValidation           = errors.New("validation error")
	ErrDataUnavailable      = errors.New("data unavailable")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	ErrComputation          = errors.New("computation error")
	ErrNotFound             = errors.New("not found")
)

// StageError carries the failing pipeline stage and the identifiers needed
// for audit logging. Only identifiers go in here; raw claimant values stay
// with the caller's masking layer.
type StageError struct {
	Stage string
	RefID string
	Err   error
}

func (e *StageError) Error() string {
	if e.RefID != "" {
		return fmt.Sprintf("%s: ref=%s: %v", e.Stage, e.RefID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage, refID string, err error) *StageError {
	return &StageError{Stage: stage, RefID: refID, Err: err}
}

// FieldError attaches field-level detail to a validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}
