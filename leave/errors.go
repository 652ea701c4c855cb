/*
errors.go - Centralized error types for the leave domain

PURPOSE:
  All leave-domain errors in one place. Sentinels for errors.Is checks,
  structured types carrying detail for API responses.

ERROR CATEGORIES:
  1. Not-found errors - missing requests, employees, balances
  2. Business-rule errors - overlap, insufficient balance
  3. Lifecycle errors - invalid status transitions

SEE ALSO:
  - lifecycle.go: Returns these from transitions
  - api/handlers.go: Maps them to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRequestNotFound is returned when a referenced request doesn't exist.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrBalanceNotFound is returned when no balance row exists for the
	// employee/type/year combination.
	ErrBalanceNotFound = errors.New("leave balance not found")

	// ErrInsufficientBalance is returned when consumption exceeds availability.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrOverlappingRequest is returned when a new request's date range
	// intersects an existing PENDING or APPROVED request.
	ErrOverlappingRequest = errors.New("overlapping leave request")

	// ErrInvalidTransition is returned for status changes the state machine
	// does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidDateRange is returned when the end date precedes the start.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage at approval time.
type InsufficientBalanceError struct {
	EmployeeID string
	Type       Type
	Year       int
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s: available %s, requested %s",
		e.Type, e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OverlapError details an overlap conflict at submission time.
type OverlapError struct {
	EmployeeID string
	ExistingID string
	Start      time.Time
	End        time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave request overlaps existing request %s (%s to %s)",
		e.ExistingID, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingRequest }

// TransitionError details a disallowed lifecycle transition.
type TransitionError struct {
	RequestID string
	From      Status
	To        Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("request %s: cannot transition from %s to %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrBalanceNotFound)
}

// IsConflict reports whether err should map to a conflict response.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOverlappingRequest) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsClientError reports whether err is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInsufficientBalance) ||
		IsConflict(err)
}
