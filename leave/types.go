/*
Package leave implements the leave request lifecycle and balance bookkeeping.

PURPOSE:
  This package contains the domain model for leave management: requests,
  their status state machine, per-employee/per-type/per-year balances,
  leave policies, and the holiday-aware working-day calendar.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: A kind of leave (sick, casual, earned, comp-off, ...)
  - Request: A leave request with its lifecycle status
  - Balance: Entitlement/used/carry-forward bookkeeping for one year
  - Policy: Per-type entitlement and approval configuration
  - Holiday: A non-working day excluded from day counting

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for day amounts (half days are exact)
  2. Derived availability: Available is always computed, never stored
  3. Guarded transitions: status changes go through Service, not field writes

SEE ALSO:
  - lifecycle.go: The Service driving status transitions
  - store.go: Persistence contracts these types flow through
  - calendar.go: Working-day counting with holidays
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

// Type identifies a kind of leave. Values are stable wire identifiers used
// in balances, policies and automation rule conditions.
type Type string

const (
	TypeCasual    Type = "CASUAL"
	TypeSick      Type = "SICK"
	TypeEarned    Type = "EARNED"
	TypeMaternity Type = "MATERNITY"
	TypePaternity Type = "PATERNITY"
	TypeCompOff   Type = "COMP_OFF"
	TypeUnpaid    Type = "UNPAID"
)

// KnownTypes lists every leave type the engine recognizes.
func KnownTypes() []Type {
	return []Type{TypeCasual, TypeSick, TypeEarned, TypeMaternity, TypePaternity, TypeCompOff, TypeUnpaid}
}

// IsKnownType reports whether t is one of the recognized leave types.
func IsKnownType(t Type) bool {
	for _, k := range KnownTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// =============================================================================
// REQUEST - A leave request and its lifecycle status
// =============================================================================

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Request is a leave request. StartDate/EndDate are inclusive day bounds.
type Request struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employeeId"`
	Type            Type            `json:"leaveType"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	TotalDays       decimal.Decimal `json:"totalDays"`
	IsHalfDay       bool            `json:"isHalfDay"`
	Reason          string          `json:"reason"`
	Status          Status          `json:"status"`
	AppliedAt       time.Time       `json:"appliedAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Approvals       []Approval      `json:"approvals,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
}

// Approval records one approver decision on a request.
type Approval struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	Approver  string    `json:"approver"`
	Decision  Status    `json:"decision"` // APPROVED or REJECTED
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Overlaps reports whether the request's inclusive date range intersects
// [start, end]. Used for the no-double-booking invariant.
func (r *Request) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

// =============================================================================
// BALANCE - Per-employee, per-type, per-year bookkeeping
// =============================================================================

// Balance tracks one employee's entitlement for a leave type and year.
// Available is derived: TotalEntitlement + CarryForward - Used. It is never
// stored independently, so the invariant cannot drift.
type Balance struct {
	EmployeeID       string          `json:"employeeId"`
	Type             Type            `json:"leaveType"`
	Year             int             `json:"year"`
	TotalEntitlement decimal.Decimal `json:"totalEntitlement"`
	Used             decimal.Decimal `json:"used"`
	CarryForward     decimal.Decimal `json:"carryForward"`
}

// Available returns how many days can still be consumed.
func (b Balance) Available() decimal.Decimal {
	return b.TotalEntitlement.Add(b.CarryForward).Sub(b.Used)
}

// CanConsume reports whether days can be deducted without going negative.
func (b Balance) CanConsume(days decimal.Decimal) bool {
	return b.Available().GreaterThanOrEqual(days)
}

// =============================================================================
// POLICY - Per-type entitlement configuration
// =============================================================================

// Policy configures entitlement and approval behavior for one leave type.
type Policy struct {
	Type              Type            `json:"leaveType"`
	AnnualEntitlement decimal.Decimal `json:"annualEntitlement"`
	CarryForwardLimit decimal.Decimal `json:"carryForwardLimit"`
	RequiresApproval  bool            `json:"requiresApproval"`
	AutoApproveUpTo   decimal.Decimal `json:"autoApproveUpTo"`
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the entity requesting leave. Role/Department/ManagerID feed
// automation rule conditions and notification routing.
type Employee struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	ManagerID  string    `json:"managerId,omitempty"`
	HireDate   time.Time `json:"hireDate"`
}

// =============================================================================
// HOLIDAY
// =============================================================================

// Holiday is a non-working day. Recurring holidays match month/day in any year.
type Holiday struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Recurring bool      `json:"recurring"`
}
