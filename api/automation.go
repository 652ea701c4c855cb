/*
automation.go - Bridges between the rule engine and the leave domain

PURPOSE:
  The automation package deliberately knows nothing about leave storage;
  it works against the narrow Lifecycle and BalanceAdjuster contracts and
  an ExecutionContext snapshot. This file provides both: adapters over
  the leave service, and the context builder that snapshots a request,
  its employee and the current balance before a trigger fires.

SEE ALSO:
  - automation/actions.go: The contracts implemented here
  - handlers.go: Builds contexts and fires triggers per endpoint
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LIFECYCLE ADAPTER
// =============================================================================

// NewLifecycleAdapter exposes the leave service to AUTO_APPROVE and
// AUTO_REJECT actions.
func NewLifecycleAdapter(svc *leave.Service) automation.Lifecycle {
	return &lifecycleAdapter{svc: svc}
}

// lifecycleAdapter lets AUTO_APPROVE/AUTO_REJECT actions drive the leave
// state machine with its guards intact.
type lifecycleAdapter struct {
	svc *leave.Service
}

func (a *lifecycleAdapter) AutoApprove(ctx context.Context, requestID, actor string) error {
	_, err := a.svc.Approve(ctx, requestID, actor, "approved by automation rule")
	return err
}

func (a *lifecycleAdapter) AutoReject(ctx context.Context, requestID, actor, reason string) error {
	_, err := a.svc.Reject(ctx, requestID, actor, reason)
	return err
}

// =============================================================================
// BALANCE ADAPTER
// =============================================================================

// NewBalanceAdapter exposes the leave service's balance operations to
// UPDATE_BALANCE actions.
func NewBalanceAdapter(svc *leave.Service) automation.BalanceAdjuster {
	return &balanceAdapter{svc: svc}
}

// balanceAdapter maps UPDATE_BALANCE parameters onto the service. The
// year is the current year; rule-driven adjustments are always about the
// running period.
type balanceAdapter struct {
	svc *leave.Service
}

func (a *balanceAdapter) year() int {
	if a.svc.Now != nil {
		return a.svc.Now().Year()
	}
	return time.Now().UTC().Year()
}

func (a *balanceAdapter) Grant(ctx context.Context, employeeID, balanceType string, amount float64) error {
	t := leave.Type(balanceType)
	if !leave.IsKnownType(t) {
		return fmt.Errorf("unknown leave type %q", balanceType)
	}
	return a.svc.Grant(ctx, employeeID, t, a.year(), decimal.NewFromFloat(amount), "automation rule adjustment")
}

func (a *balanceAdapter) Deduct(ctx context.Context, employeeID, balanceType string, amount float64) error {
	t := leave.Type(balanceType)
	if !leave.IsKnownType(t) {
		return fmt.Errorf("unknown leave type %q", balanceType)
	}
	return a.svc.Deduct(ctx, employeeID, t, a.year(), decimal.NewFromFloat(amount), "automation rule adjustment")
}

// =============================================================================
// CONTEXT BUILDER
// =============================================================================

// BuildContext snapshots a leave request, its employee and the matching
// balance into an ExecutionContext. A missing balance row reads as zero
// availability rather than failing the trigger.
func BuildContext(ctx context.Context, svc *leave.Service, req *leave.Request, now time.Time) (*automation.ExecutionContext, error) {
	emp, err := svc.Employees.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", req.EmployeeID, err)
	}

	available := 0.0
	balance, err := svc.Balances.GetBalance(ctx, req.EmployeeID, req.Type, req.StartDate.Year())
	if err != nil && !errors.Is(err, leave.ErrBalanceNotFound) {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	if balance != nil {
		available = balance.Available().InexactFloat64()
	}

	return &automation.ExecutionContext{
		LeaveRequest: &automation.RequestContext{
			ID:          req.ID,
			EmployeeID:  req.EmployeeID,
			LeaveType:   string(req.Type),
			Duration:    req.TotalDays.InexactFloat64(),
			UserBalance: available,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Reason:      req.Reason,
		},
		User: &automation.UserContext{
			ID:         emp.ID,
			Role:       emp.Role,
			Department: emp.Department,
			ManagerID:  emp.ManagerID,
			Email:      emp.Email,
		},
		CurrentDate: now,
	}, nil
}
