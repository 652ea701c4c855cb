/*
lifecycle.go - The leave request state machine

PURPOSE:
  Drives status transitions with their guards:

    DRAFT ──▶ PENDING ──▶ APPROVED ──▶ CANCELLED
                  │            │
                  ├──▶ REJECTED
                  └──▶ CANCELLED

  Submission collapses DRAFT into PENDING: a request is persisted already
  pending. APPROVED and REJECTED are terminal for rule-driven paths;
  cancellation is a separate user/admin operation.

TRANSITION GUARDS:
  - Submission: no overlapping PENDING/APPROVED request for the employee
    (any leave type), valid date range, at least one working day
  - Approval: available balance >= TotalDays, deducted atomically
  - Rejection: no balance effect
  - Cancellation of APPROVED: restores the prior deduction

SEE ALSO:
  - store.go: The persistence contracts consumed here
  - errors.go: TransitionError, OverlapError, InsufficientBalanceError
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSITION TABLE
// =============================================================================

var transitions = map[Status][]Status{
	StatusDraft:    {StatusPending},
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled},
	// REJECTED and CANCELLED are terminal.
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// =============================================================================
// SERVICE - Lifecycle orchestration
// =============================================================================

// SubmitInput is the caller-supplied part of a new request.
type SubmitInput struct {
	EmployeeID string
	Type       Type
	StartDate  time.Time
	EndDate    time.Time
	IsHalfDay  bool
	Reason     string
}

// Service applies lifecycle transitions with their guards.
type Service struct {
	Requests  RequestStore
	Balances  BalanceStore
	Employees EmployeeStore
	Holidays  HolidayStore

	// Ledger, when set, receives one entry per balance movement. Appends
	// are best effort: the balance row stays authoritative and a failed
	// append never rolls back the transition it describes.
	Ledger LedgerStore

	// Policies configures entitlements per leave type. Balances for a year
	// are seeded lazily from here on first submission.
	Policies map[Type]Policy

	// Now is the clock; nil means time.Now. Injected by tests.
	Now func() time.Time
}

func (s *Service) record(ctx context.Context, e LedgerEntry) {
	if s.Ledger == nil {
		return
	}
	e.ID = uuid.New().String()
	e.RecordedAt = s.now()
	_ = s.Ledger.AppendEntry(ctx, &e)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Submit validates and persists a new request in PENDING status.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if !IsKnownType(in.Type) {
		return nil, fmt.Errorf("unknown leave type %q", in.Type)
	}
	if _, err := s.Employees.GetEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}

	cal, err := s.calendar(ctx)
	if err != nil {
		return nil, err
	}
	days, err := RequestDays(in.StartDate, in.EndDate, in.IsHalfDay, cal)
	if err != nil {
		return nil, err
	}

	// Overlap guard: no PENDING/APPROVED request may intersect, across any
	// leave type.
	existing, err := s.Requests.FindOverlap(ctx, in.EmployeeID, in.StartDate, in.EndDate, "")
	if err != nil {
		return nil, fmt.Errorf("overlap check failed: %w", err)
	}
	if existing != "" {
		return nil, &OverlapError{
			EmployeeID: in.EmployeeID,
			ExistingID: existing,
			Start:      in.StartDate,
			End:        in.EndDate,
		}
	}

	// Make sure a balance row exists so approval has something to deduct from.
	if _, err := s.EnsureBalance(ctx, in.EmployeeID, in.Type, in.StartDate.Year()); err != nil {
		return nil, err
	}

	now := s.now()
	req := &Request{
		ID:         uuid.New().String(),
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		StartDate:  truncateDay(in.StartDate),
		EndDate:    truncateDay(in.EndDate),
		TotalDays:  days,
		IsHalfDay:  in.IsHalfDay,
		Reason:     in.Reason,
		Status:     StatusPending,
		AppliedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Requests.SaveRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}
	return req, nil
}

// Approve transitions PENDING -> APPROVED, deducting the balance atomically.
func (s *Service) Approve(ctx context.Context, id, approverID, comment string) (*Request, error) {
	req, err := s.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, StatusApproved) {
		return nil, &TransitionError{RequestID: id, From: req.Status, To: StatusApproved}
	}

	// The balance guard and deduction are one atomic store operation.
	year := req.StartDate.Year()
	if err := s.Balances.Consume(ctx, req.EmployeeID, req.Type, year, req.TotalDays); err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = StatusApproved
	req.UpdatedAt = now
	req.Approvals = append(req.Approvals, Approval{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		Approver:  approverID,
		Decision:  StatusApproved,
		Comment:   comment,
		DecidedAt: now,
	})

	if err := s.Requests.UpdateRequest(ctx, req); err != nil {
		// Roll the deduction back so the balance invariant holds.
		_ = s.Balances.Restore(ctx, req.EmployeeID, req.Type, year, req.TotalDays)
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	s.record(ctx, LedgerEntry{
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		Year:       year,
		Kind:       MovementConsume,
		Days:       req.TotalDays,
		RequestID:  req.ID,
	})
	return req, nil
}

// Reject transitions PENDING -> REJECTED. Balances are untouched.
func (s *Service) Reject(ctx context.Context, id, approverID, reason string) (*Request, error) {
	req, err := s.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, StatusRejected) {
		return nil, &TransitionError{RequestID: id, From: req.Status, To: StatusRejected}
	}

	now := s.now()
	req.Status = StatusRejected
	req.RejectionReason = reason
	req.UpdatedAt = now
	req.Approvals = append(req.Approvals, Approval{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		Approver:  approverID,
		Decision:  StatusRejected,
		Comment:   reason,
		DecidedAt: now,
	})

	if err := s.Requests.UpdateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return req, nil
}

// Cancel transitions PENDING or APPROVED -> CANCELLED. Cancelling an
// approved request restores the earlier balance deduction.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (*Request, error) {
	req, err := s.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, StatusCancelled) {
		return nil, &TransitionError{RequestID: id, From: req.Status, To: StatusCancelled}
	}

	wasApproved := req.Status == StatusApproved

	now := s.now()
	req.Status = StatusCancelled
	req.UpdatedAt = now

	if err := s.Requests.UpdateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	if wasApproved {
		year := req.StartDate.Year()
		if err := s.Balances.Restore(ctx, req.EmployeeID, req.Type, year, req.TotalDays); err != nil {
			return nil, fmt.Errorf("failed to restore balance: %w", err)
		}
		s.record(ctx, LedgerEntry{
			EmployeeID: req.EmployeeID,
			Type:       req.Type,
			Year:       year,
			Kind:       MovementRestore,
			Days:       req.TotalDays,
			RequestID:  req.ID,
		})
	}
	return req, nil
}

// =============================================================================
// BALANCE SEEDING AND ROLLOVER
// =============================================================================

// EnsureBalance returns the employee's balance for type/year, creating it
// from the configured policy when it doesn't exist yet.
func (s *Service) EnsureBalance(ctx context.Context, employeeID string, t Type, year int) (*Balance, error) {
	b, err := s.Balances.GetBalance(ctx, employeeID, t, year)
	if err == nil {
		return b, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	entitlement := decimal.Zero
	if p, ok := s.Policies[t]; ok {
		entitlement = p.AnnualEntitlement
	}
	b = &Balance{
		EmployeeID:       employeeID,
		Type:             t,
		Year:             year,
		TotalEntitlement: entitlement,
		Used:             decimal.Zero,
		CarryForward:     decimal.Zero,
	}
	if err := s.Balances.SaveBalance(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to seed balance: %w", err)
	}
	if !entitlement.IsZero() {
		s.record(ctx, LedgerEntry{
			EmployeeID: employeeID,
			Type:       t,
			Year:       year,
			Kind:       MovementSeed,
			Days:       entitlement,
			Note:       "annual entitlement from policy",
		})
	}
	return b, nil
}

// Grant credits extra entitlement (e.g. comp-off earned for overtime) and
// records the movement.
func (s *Service) Grant(ctx context.Context, employeeID string, t Type, year int, days decimal.Decimal, note string) error {
	if err := s.Balances.Grant(ctx, employeeID, t, year, days); err != nil {
		return err
	}
	s.record(ctx, LedgerEntry{
		EmployeeID: employeeID,
		Type:       t,
		Year:       year,
		Kind:       MovementGrant,
		Days:       days,
		Note:       note,
	})
	return nil
}

// Deduct consumes balance outside the approval path (rule-driven
// adjustments) and records the movement.
func (s *Service) Deduct(ctx context.Context, employeeID string, t Type, year int, days decimal.Decimal, note string) error {
	if err := s.Balances.Consume(ctx, employeeID, t, year, days); err != nil {
		return err
	}
	s.record(ctx, LedgerEntry{
		EmployeeID: employeeID,
		Type:       t,
		Year:       year,
		Kind:       MovementConsume,
		Days:       days,
		Note:       note,
	})
	return nil
}

// RolloverYear carries unused balance from fromYear into fromYear+1 for one
// employee, capped per type by the policy's CarryForwardLimit.
func (s *Service) RolloverYear(ctx context.Context, employeeID string, fromYear int) error {
	balances, err := s.Balances.ListBalances(ctx, employeeID, fromYear)
	if err != nil {
		return err
	}
	for _, b := range balances {
		policy, ok := s.Policies[b.Type]
		if !ok {
			continue
		}
		carry := b.Available()
		if carry.IsNegative() {
			carry = decimal.Zero
		}
		if carry.GreaterThan(policy.CarryForwardLimit) {
			carry = policy.CarryForwardLimit
		}

		next, err := s.EnsureBalance(ctx, employeeID, b.Type, fromYear+1)
		if err != nil {
			return err
		}
		next.CarryForward = carry
		if err := s.Balances.SaveBalance(ctx, next); err != nil {
			return fmt.Errorf("failed to save rollover balance: %w", err)
		}
		if !carry.IsZero() {
			s.record(ctx, LedgerEntry{
				EmployeeID: employeeID,
				Type:       b.Type,
				Year:       fromYear + 1,
				Kind:       MovementCarryForward,
				Days:       carry,
				Note:       fmt.Sprintf("carried forward from %d", fromYear),
			})
		}
	}
	return nil
}

func (s *Service) calendar(ctx context.Context) (Calendar, error) {
	if s.Holidays == nil {
		return NoHolidays{}, nil
	}
	hs, err := s.Holidays.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	holidays := make([]Holiday, 0, len(hs))
	for _, h := range hs {
		holidays = append(holidays, *h)
	}
	return NewHolidayCalendar(holidays), nil
}
