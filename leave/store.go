/*
store.go - Persistence interfaces for the leave domain

PURPOSE:
  Defines the contract between lifecycle logic and the database. The
  balance store is the one place real concurrency discipline matters:
  Consume is a single conditional update so two racing approvals cannot
  overdraw the same balance row.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - memory.go: in-memory store for tests and dev

SEE ALSO:
  - lifecycle.go: Consumes these interfaces
  - types.go: The derived-availability invariant Consume must preserve
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RequestFilter narrows ListRequests results. Zero fields match everything.
type RequestFilter struct {
	EmployeeID string
	Status     Status
	Type       Type
}

// RequestStore persists leave requests.
type RequestStore interface {
	// SaveRequest inserts a new request.
	SaveRequest(ctx context.Context, r *Request) error

	// GetRequest returns a request or ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// UpdateRequest overwrites an existing request (status, approvals, ...).
	UpdateRequest(ctx context.Context, r *Request) error

	// ListRequests returns requests matching the filter, oldest first.
	ListRequests(ctx context.Context, f RequestFilter) ([]*Request, error)

	// FindOverlap returns the ID of a PENDING or APPROVED request for the
	// employee whose inclusive range intersects [start, end], or "" if none.
	// excludeID is skipped (for resubmission checks).
	FindOverlap(ctx context.Context, employeeID string, start, end time.Time, excludeID string) (string, error)
}

// BalanceStore persists leave balances.
//
// Consume and Restore MUST be atomic: a conditional single-row update (or
// equivalent) so the available-balance check and the deduction cannot be
// separated by a concurrent writer.
type BalanceStore interface {
	// GetBalance returns a balance or ErrBalanceNotFound.
	GetBalance(ctx context.Context, employeeID string, t Type, year int) (*Balance, error)

	// ListBalances returns all balances for an employee in a year.
	ListBalances(ctx context.Context, employeeID string, year int) ([]*Balance, error)

	// SaveBalance inserts or replaces a balance row.
	SaveBalance(ctx context.Context, b *Balance) error

	// Consume adds days to Used iff Available >= days.
	// Returns *InsufficientBalanceError when the guard fails.
	Consume(ctx context.Context, employeeID string, t Type, year int, days decimal.Decimal) error

	// Restore subtracts days from Used (reversing a prior Consume).
	Restore(ctx context.Context, employeeID string, t Type, year int, days decimal.Decimal) error

	// Grant adds days to TotalEntitlement (comp-off accrual, adjustments).
	Grant(ctx context.Context, employeeID string, t Type, year int, days decimal.Decimal) error
}

// EmployeeStore persists employees.
type EmployeeStore interface {
	SaveEmployee(ctx context.Context, e *Employee) error

	// GetEmployee returns an employee or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id string) (*Employee, error)

	ListEmployees(ctx context.Context) ([]*Employee, error)
}

// HolidayStore persists company holidays.
type HolidayStore interface {
	SaveHoliday(ctx context.Context, h *Holiday) error
	ListHolidays(ctx context.Context) ([]*Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}
