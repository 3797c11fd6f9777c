package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidationError reports malformed or out-of-range input the caller can correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFoundError(entity string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// ConflictError is returned when admission is refused because an active booking
// already holds an overlapping interval.
type ConflictError struct {
	DoctorID uuid.UUID
	Date     time.Time
	Blocking Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflicts with existing booking %s on %s", e.Blocking, e.Date.Format(DateLayout))
}

type InvalidStateError struct {
	Current   BookingStatus
	Requested BookingStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.Current, e.Requested)
}

// AuthorizationError must not carry details about other patients.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

// TransientError marks failures a client may retry, such as an admission lock wait timing out.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: temporarily unavailable: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// InternalError wraps unexpected storage or infrastructure failures.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
