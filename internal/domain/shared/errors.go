// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Configuration errors are fatal to the calling request and not
	// retryable without a configuration fix.
	ErrConfiguration = errors.New("configuration error")

	// Conflict errors carry the conflicting prior state so the caller can
	// decide to force/overwrite.
	ErrConflict = errors.New("conflict with existing state")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Transaction errors
	ErrTransactionAborted = errors.New("transaction aborted")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLockNotAcquired        = errors.New("lock not acquired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "attendance", "promotion"
	Op      string // Operation that failed, e.g., "Record", "Promote"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Partition router errors
var (
	ErrUnknownOrganizationUnit = NewDomainError("partition", "Resolve", ErrConfiguration, "organization stream is not configured")
	ErrInvalidPeriod           = NewDomainError("partition", "Resolve", ErrConfiguration, "academic period is outside the configured range")
	ErrInvalidPartitionKind    = NewDomainError("partition", "Resolve", ErrInvalidInput, "unknown record kind")
	ErrReprovisionNotAllowed   = NewDomainError("partition", "Reprovision", ErrInvalidState, "partition reprovisioning is not enabled")
)

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Register", ErrAlreadyExists, "student already exists in this partition")
	ErrInvalidExternalID    = NewDomainError("student", "Validate", ErrInvalidID, "invalid external ID")
	ErrStudentNotActive     = NewDomainError("student", "CheckStatus", ErrInvalidState, "student is not active")
)

// Subject domain errors
var (
	ErrSubjectNotFound      = NewDomainError("subject", "Find", ErrNotFound, "subject not found")
	ErrSubjectAlreadyExists = NewDomainError("subject", "Create", ErrAlreadyExists, "subject already exists for this period")
	ErrInvalidLanguageTag   = NewDomainError("subject", "Validate", ErrInvalidInput, "language-restricted subject requires a valid language tag")
)

// Attendance domain errors
var (
	ErrDuplicateRecord    = NewDomainError("attendance", "Record", ErrConflict, "attendance already recorded for this date and subject")
	ErrNoEligibleStudents = NewDomainError("attendance", "Record", ErrInvalidState, "no eligible students for this subject")
	ErrIneligibleStudent  = NewDomainError("attendance", "Record", ErrInvalidInput, "present list contains a student not eligible for this subject")
	ErrAttendanceNotFound = NewDomainError("attendance", "Find", ErrNotFound, "attendance record not found")
)

// Promotion domain errors
var (
	ErrPromotionAborted    = NewDomainError("promotion", "Promote", ErrTransactionAborted, "promotion transaction aborted")
	ErrPromotionInProgress = NewDomainError("promotion", "Promote", ErrLockNotAcquired, "another promotion is in flight for this stream")
	ErrEmptyPromotionRange = NewDomainError("promotion", "Promote", ErrConfiguration, "stream has an empty promotion range")
)

// Notification domain errors
var (
	ErrAlreadyDispatched    = NewDomainError("notification", "Dispatch", ErrConflict, "notifications already dispatched for this date")
	ErrDispatchLogNotFound  = NewDomainError("notification", "Find", ErrNotFound, "no dispatch log entry for this date")
	ErrGatewayUnavailable   = NewDomainError("gateway", "Send", ErrServiceUnavailable, "messaging gateway is unavailable")
	ErrGatewayRejected      = NewDomainError("gateway", "Send", ErrExternalService, "messaging gateway rejected the message")
	ErrMissingGuardianPhone = NewDomainError("notification", "Build", ErrEmptyValue, "student has no usable guardian contact")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error (duplicate record,
// already-dispatched, already-exists).
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}

// IsConfiguration checks if the error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTransactionAborted checks if the error aborted a multi-partition transaction.
func IsTransactionAborted(err error) bool {
	return errors.Is(err, ErrTransactionAborted)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
