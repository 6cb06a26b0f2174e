package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidQuery = errors.New("invalid query")
	ErrSoldOut      = errors.New("sold out")
	ErrConflict     = errors.New("conflict")
)

// ValidationError reports a schema or invariant violation on a field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError builds a NotFoundError
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// DuplicateKeyError reports a unique constraint violation
type DuplicateKeyError struct {
	Entity string
	Key    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Entity, e.Key)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// InvalidQueryError reports malformed discovery input
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

// NewInvalidQueryError builds an InvalidQueryError
func NewInvalidQueryError(format string, args ...interface{}) error {
	return &InvalidQueryError{Reason: fmt.Sprintf(format, args...)}
}

// SoldOutError reports an exhausted ticket tier or a full event
type SoldOutError struct {
	EventID string
	Tier    string
}

func (e *SoldOutError) Error() string {
	if e.Tier == "" {
		return fmt.Sprintf("event %s is at capacity", e.EventID)
	}
	return fmt.Sprintf("tier %q of event %s is sold out", e.Tier, e.EventID)
}

func (e *SoldOutError) Is(target error) bool { return target == ErrSoldOut }

// ConflictError reports a transient concurrency failure that may succeed on retry
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("conflict during %s", e.Op)
	}
	return fmt.Sprintf("conflict during %s: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func IsValidationError(err error) bool   { return errors.Is(err, ErrValidation) }
func IsNotFoundError(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsDuplicateKeyError(err error) bool { return errors.Is(err, ErrDuplicateKey) }
func IsInvalidQueryError(err error) bool { return errors.Is(err, ErrInvalidQuery) }
func IsSoldOutError(err error) bool      { return errors.Is(err, ErrSoldOut) }
func IsConflictError(err error) bool     { return errors.Is(err, ErrConflict) }
