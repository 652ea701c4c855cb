package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRequest(id string) *leave.Request {
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	return &leave.Request{
		ID:         id,
		EmployeeID: "emp-1",
		Type:       leave.TypeCasual,
		StartDate:  time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC),
		TotalDays:  decimal.NewFromInt(5),
		Reason:     "family trip",
		Status:     leave.StatusPending,
		AppliedAt:  now,
		UpdatedAt:  now,
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestRequestRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1")
	require.NoError(t, store.SaveRequest(ctx, req))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, req.EmployeeID, got.EmployeeID)
	assert.Equal(t, leave.TypeCasual, got.Type)
	assert.Equal(t, leave.StatusPending, got.Status)
	assert.True(t, got.TotalDays.Equal(decimal.NewFromInt(5)))
	assert.True(t, got.StartDate.Equal(req.StartDate))
	assert.True(t, got.AppliedAt.Equal(req.AppliedAt))
	assert.Empty(t, got.Approvals)

	_, err = store.GetRequest(ctx, "missing")
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func TestUpdateRequest_PersistsApprovals(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1")
	require.NoError(t, store.SaveRequest(ctx, req))

	req.Status = leave.StatusApproved
	req.Approvals = []leave.Approval{{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Approver:  "emp-2",
		Decision:  leave.StatusApproved,
		Comment:   "enjoy",
		DecidedAt: time.Date(2026, time.June, 2, 10, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, store.UpdateRequest(ctx, req))

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	require.Len(t, got.Approvals, 1)
	assert.Equal(t, "emp-2", got.Approvals[0].Approver)

	assert.ErrorIs(t, store.UpdateRequest(ctx, sampleRequest("missing")), leave.ErrRequestNotFound)
}

func TestListRequests_Filters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := sampleRequest("req-a")
	require.NoError(t, store.SaveRequest(ctx, a))

	b := sampleRequest("req-b")
	b.EmployeeID = "emp-2"
	b.Type = leave.TypeSick
	b.StartDate = time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	b.EndDate = time.Date(2026, time.July, 2, 0, 0, 0, 0, time.UTC)
	b.Status = leave.StatusApproved
	b.AppliedAt = a.AppliedAt.Add(time.Hour)
	require.NoError(t, store.SaveRequest(ctx, b))

	all, err := store.ListRequests(ctx, leave.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "req-a", all[0].ID, "oldest first")

	byEmployee, err := store.ListRequests(ctx, leave.RequestFilter{EmployeeID: "emp-2"})
	require.NoError(t, err)
	require.Len(t, byEmployee, 1)
	assert.Equal(t, "req-b", byEmployee[0].ID)

	byStatus, err := store.ListRequests(ctx, leave.RequestFilter{Status: leave.StatusApproved})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	byType, err := store.ListRequests(ctx, leave.RequestFilter{Type: leave.TypeCasual})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "req-a", byType[0].ID)
}

func TestFindOverlap(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	req := sampleRequest("req-1") // Jun 8..12, PENDING
	require.NoError(t, store.SaveRequest(ctx, req))

	cancelled := sampleRequest("req-2")
	cancelled.StartDate = time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	cancelled.EndDate = time.Date(2026, time.June, 19, 0, 0, 0, 0, time.UTC)
	cancelled.Status = leave.StatusCancelled
	require.NoError(t, store.SaveRequest(ctx, cancelled))

	t.Run("intersecting range", func(t *testing.T) {
		id, err := store.FindOverlap(ctx, "emp-1",
			time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.Equal(t, "req-1", id)
	})

	t.Run("boundary day counts", func(t *testing.T) {
		id, err := store.FindOverlap(ctx, "emp-1",
			time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.Equal(t, "req-1", id)
	})

	t.Run("disjoint range", func(t *testing.T) {
		id, err := store.FindOverlap(ctx, "emp-1",
			time.Date(2026, time.June, 22, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.June, 26, 0, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("cancelled requests are ignored", func(t *testing.T) {
		id, err := store.FindOverlap(ctx, "emp-1",
			time.Date(2026, time.June, 16, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.June, 17, 0, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("other employees are ignored", func(t *testing.T) {
		id, err := store.FindOverlap(ctx, "emp-9",
			time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC), "")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("excluded id is skipped", func(t *testing.T) {
		id, err := store.FindOverlap(ctx, "emp-1",
			time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC), "req-1")
		require.NoError(t, err)
		assert.Empty(t, id)
	})
}

// =============================================================================
// BALANCES
// =============================================================================

func TestBalanceConsume(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBalance(ctx, &leave.Balance{
		EmployeeID:       "emp-1",
		Type:             leave.TypeCasual,
		Year:             2026,
		TotalEntitlement: decimal.NewFromInt(10),
		CarryForward:     decimal.NewFromInt(2),
	}))

	// Partial consume.
	require.NoError(t, store.Consume(ctx, "emp-1", leave.TypeCasual, 2026, decimal.NewFromFloat(4.5)))

	b, err := store.GetBalance(ctx, "emp-1", leave.TypeCasual, 2026)
	require.NoError(t, err)
	assert.True(t, b.Used.Equal(decimal.NewFromFloat(4.5)))
	assert.True(t, b.Available().Equal(decimal.NewFromFloat(7.5)))

	// Consuming exactly the remainder is allowed.
	require.NoError(t, store.Consume(ctx, "emp-1", leave.TypeCasual, 2026, decimal.NewFromFloat(7.5)))

	// Nothing left.
	err = store.Consume(ctx, "emp-1", leave.TypeCasual, 2026, decimal.NewFromInt(1))
	var insufficient *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.IsZero())
	assert.True(t, insufficient.Requested.Equal(decimal.NewFromInt(1)))
	assert.True(t, leave.IsClientError(err))
}

func TestBalanceConsume_MissingRow(t *testing.T) {
	store := newStore(t)
	err := store.Consume(context.Background(), "ghost", leave.TypeCasual, 2026, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

func TestBalanceRestore_ClampsAtZero(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBalance(ctx, &leave.Balance{
		EmployeeID:       "emp-1",
		Type:             leave.TypeCasual,
		Year:             2026,
		TotalEntitlement: decimal.NewFromInt(10),
		Used:             decimal.NewFromInt(2),
	}))

	require.NoError(t, store.Restore(ctx, "emp-1", leave.TypeCasual, 2026, decimal.NewFromInt(5)))

	b, err := store.GetBalance(ctx, "emp-1", leave.TypeCasual, 2026)
	require.NoError(t, err)
	assert.True(t, b.Used.IsZero(), "used never goes negative")

	assert.ErrorIs(t, store.Restore(ctx, "ghost", leave.TypeCasual, 2026, decimal.NewFromInt(1)),
		leave.ErrBalanceNotFound)
}

func TestBalanceGrant_CreatesAndAccumulates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "emp-1", leave.TypeCompOff, 2026, decimal.NewFromInt(1)))
	require.NoError(t, store.Grant(ctx, "emp-1", leave.TypeCompOff, 2026, decimal.NewFromFloat(0.5)))

	b, err := store.GetBalance(ctx, "emp-1", leave.TypeCompOff, 2026)
	require.NoError(t, err)
	assert.True(t, b.TotalEntitlement.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, b.Used.IsZero())
}

func TestListBalances(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, typ := range []leave.Type{leave.TypeSick, leave.TypeCasual} {
		require.NoError(t, store.SaveBalance(ctx, &leave.Balance{
			EmployeeID:       "emp-1",
			Type:             typ,
			Year:             2026,
			TotalEntitlement: decimal.NewFromInt(10),
		}))
	}
	require.NoError(t, store.SaveBalance(ctx, &leave.Balance{
		EmployeeID: "emp-1", Type: leave.TypeCasual, Year: 2025,
		TotalEntitlement: decimal.NewFromInt(8),
	}))

	out, err := store.ListBalances(ctx, "emp-1", 2026)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, leave.TypeCasual, out[0].Type, "sorted by type")
	assert.Equal(t, leave.TypeSick, out[1].Type)
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

func TestLedgerRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	seed := &leave.LedgerEntry{
		ID:         uuid.New().String(),
		EmployeeID: "emp-1",
		Type:       leave.TypeCasual,
		Year:       2026,
		Kind:       leave.MovementSeed,
		Days:       decimal.NewFromInt(12),
		Note:       "annual entitlement from policy",
		RecordedAt: base,
	}
	consume := &leave.LedgerEntry{
		ID:         uuid.New().String(),
		EmployeeID: "emp-1",
		Type:       leave.TypeCasual,
		Year:       2026,
		Kind:       leave.MovementConsume,
		Days:       decimal.NewFromFloat(4.5),
		RequestID:  "req-1",
		RecordedAt: base.Add(time.Hour),
	}
	require.NoError(t, store.AppendEntry(ctx, seed))
	require.NoError(t, store.AppendEntry(ctx, consume))

	out, err := store.ListEntries(ctx, leave.LedgerFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, leave.MovementSeed, out[0].Kind, "oldest first")
	assert.True(t, out[0].Days.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "annual entitlement from policy", out[0].Note)
	assert.True(t, out[0].RecordedAt.Equal(base))
	assert.Equal(t, "req-1", out[1].RequestID)
	assert.True(t, out[1].Days.Equal(decimal.NewFromFloat(4.5)))
}

func TestLedgerFilters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	at := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	entries := []leave.LedgerEntry{
		{EmployeeID: "emp-1", Type: leave.TypeCasual, Year: 2025, Kind: leave.MovementSeed, Days: decimal.NewFromInt(12)},
		{EmployeeID: "emp-1", Type: leave.TypeSick, Year: 2026, Kind: leave.MovementSeed, Days: decimal.NewFromInt(10)},
		{EmployeeID: "emp-1", Type: leave.TypeCasual, Year: 2026, Kind: leave.MovementConsume, Days: decimal.NewFromInt(2), RequestID: "req-9"},
		{EmployeeID: "emp-2", Type: leave.TypeCasual, Year: 2026, Kind: leave.MovementSeed, Days: decimal.NewFromInt(12)},
	}
	for i := range entries {
		entries[i].RecordedAt = at.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.AppendEntry(ctx, &entries[i]))
	}

	byYear, err := store.ListEntries(ctx, leave.LedgerFilter{EmployeeID: "emp-1", Year: 2026})
	require.NoError(t, err)
	assert.Len(t, byYear, 2)

	byType, err := store.ListEntries(ctx, leave.LedgerFilter{EmployeeID: "emp-1", Type: leave.TypeSick})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, leave.TypeSick, byType[0].Type)

	byRequest, err := store.ListEntries(ctx, leave.LedgerFilter{RequestID: "req-9"})
	require.NoError(t, err)
	require.Len(t, byRequest, 1)
	assert.Equal(t, leave.MovementConsume, byRequest[0].Kind)
}

// =============================================================================
// EMPLOYEES AND HOLIDAYS
// =============================================================================

func TestEmployeeRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	e := &leave.Employee{
		ID:         "emp-1",
		Name:       "Alice",
		Email:      "alice@example.com",
		Role:       "ENGINEER",
		Department: "ENGINEERING",
		ManagerID:  "emp-2",
		HireDate:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveEmployee(ctx, e))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.ManagerID, got.ManagerID)
	assert.True(t, got.HireDate.Equal(e.HireDate))

	// Upsert on the same ID.
	e.Department = "PLATFORM"
	e.ManagerID = ""
	require.NoError(t, store.SaveEmployee(ctx, e))
	got, err = store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "PLATFORM", got.Department)
	assert.Empty(t, got.ManagerID)

	_, err = store.GetEmployee(ctx, "ghost")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)

	list, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHolidayStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	h := &leave.Holiday{
		Date:      time.Date(2026, time.January, 26, 0, 0, 0, 0, time.UTC),
		Name:      "Republic Day",
		Recurring: true,
	}
	require.NoError(t, store.SaveHoliday(ctx, h))
	assert.NotEmpty(t, h.ID, "ID assigned on save")

	// Same date+name upserts instead of duplicating.
	require.NoError(t, store.SaveHoliday(ctx, &leave.Holiday{
		Date: h.Date, Name: h.Name, Recurring: false,
	}))

	out, err := store.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Recurring)

	require.NoError(t, store.DeleteHoliday(ctx, out[0].ID))
	out, err = store.ListHolidays(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// =============================================================================
// AUTOMATION RULES
// =============================================================================

func sampleRule(name string, priority int) automation.AutomationRule {
	return automation.AutomationRule{
		Name:     name,
		Enabled:  true,
		Priority: priority,
		Trigger: automation.Trigger{
			Type: automation.TriggerLeaveRequest,
			Conditions: []automation.RuleCondition{{
				Type:            automation.CondLeaveType,
				Operator:        automation.OpEquals,
				Value:           "SICK",
				LogicalOperator: automation.LogicalAnd,
			}},
		},
		Actions: []automation.RuleAction{{
			ID:   uuid.NewString(),
			Type: automation.ActionAutoApprove,
		}},
		ValidationRules: []automation.RuleCondition{{
			Type:            automation.CondBalance,
			Operator:        automation.OpGreaterThan,
			Value:           0,
			LogicalOperator: automation.LogicalAnd,
		}},
		CreatedBy: "admin",
	}
}

func TestRuleRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rule := sampleRule("auto-approve sick", 1)
	require.NoError(t, store.Create(ctx, &rule))
	require.NotEmpty(t, rule.ID)

	got, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rule.Name, got.Name)
	assert.Equal(t, automation.TriggerLeaveRequest, got.Trigger.Type)
	require.Len(t, got.Trigger.Conditions, 1)
	assert.Equal(t, automation.CondLeaveType, got.Trigger.Conditions[0].Type)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, automation.ActionAutoApprove, got.Actions[0].Type)
	require.Len(t, got.ValidationRules, 1)
	assert.Equal(t, "admin", got.CreatedBy)
	assert.Equal(t, int64(0), got.ExecutionCount)
	assert.Nil(t, got.LastExecuted)

	absent, err := store.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, absent)
}

func TestRuleListFiltersAndOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	second := sampleRule("second", 5)
	require.NoError(t, store.Create(ctx, &second))

	first := sampleRule("first", 1)
	require.NoError(t, store.Create(ctx, &first))

	disabled := sampleRule("disabled", 2)
	disabled.Enabled = false
	disabled.CreatedBy = "config"
	require.NoError(t, store.Create(ctx, &disabled))

	on := true
	out, err := store.List(ctx, automation.RuleFilter{
		Enabled:     &on,
		TriggerType: automation.TriggerLeaveRequest,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Name, "priority ascending")
	assert.Equal(t, "second", out[1].Name)

	out, err = store.List(ctx, automation.RuleFilter{CreatedBy: "config"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "disabled", out[0].Name)
}

func TestRuleUpdateAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rule := sampleRule("before", 1)
	require.NoError(t, store.Create(ctx, &rule))

	name := "after"
	off := false
	actions := []automation.RuleAction{{Type: automation.ActionNotifyManager}}
	got, err := store.Update(ctx, rule.ID, automation.RuleUpdate{
		Name:    &name,
		Enabled: &off,
		Actions: &actions,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.False(t, got.Enabled)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, automation.ActionNotifyManager, got.Actions[0].Type)
	assert.Equal(t, 1, got.Priority, "unset fields keep their values")

	// The update is durable, not just in the returned value.
	reread, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", reread.Name)

	_, err = store.Update(ctx, "missing", automation.RuleUpdate{Name: &name})
	assert.ErrorIs(t, err, automation.ErrRuleNotFound)

	require.NoError(t, store.Delete(ctx, rule.ID))
	assert.ErrorIs(t, store.Delete(ctx, rule.ID), automation.ErrRuleNotFound)
}

func TestRuleRecordExecution(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rule := sampleRule("r", 1)
	require.NoError(t, store.Create(ctx, &rule))

	at := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordExecution(ctx, rule.ID, at))
	require.NoError(t, store.RecordExecution(ctx, rule.ID, at.Add(time.Hour)))

	got, err := store.Get(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ExecutionCount)
	require.NotNil(t, got.LastExecuted)
	assert.True(t, got.LastExecuted.Equal(at.Add(time.Hour)))

	assert.ErrorIs(t, store.RecordExecution(ctx, "missing", at), automation.ErrRuleNotFound)
}

// =============================================================================
// SCHEDULED ACTIONS
// =============================================================================

func TestScheduledActionQueue(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	execCtx := &automation.ExecutionContext{
		LeaveRequest: &automation.RequestContext{ID: "req-1", EmployeeID: "emp-1", LeaveType: "CASUAL"},
	}

	enqueue := func(id string, at time.Time) {
		require.NoError(t, store.Enqueue(ctx, automation.ScheduledAction{
			ID:        id,
			RuleID:    "rule-1",
			Action:    automation.RuleAction{Type: automation.ActionEscalate},
			ExecuteAt: at,
		}, execCtx))
	}
	enqueue("a-late", now.Add(-time.Hour))
	enqueue("a-early", now.Add(-2*time.Hour))
	enqueue("a-future", now.Add(time.Hour))

	due, err := store.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "a-early", due[0].ID, "oldest first")
	assert.Equal(t, automation.ActionEscalate, due[0].Action.Type)
	require.NotNil(t, due[0].Context)
	assert.Equal(t, "req-1", due[0].Context.LeaveRequest.ID)
	assert.Equal(t, automation.ScheduleStatusPending, due[0].Status)

	require.NoError(t, store.MarkExecuted(ctx, "a-early", now))
	require.NoError(t, store.MarkFailed(ctx, "a-late", now, "boom"))

	due, err = store.Due(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	// The future action surfaces once its time comes.
	due, err = store.Due(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a-future", due[0].ID)

	assert.ErrorIs(t, store.MarkExecuted(ctx, "missing", now), automation.ErrScheduledActionNotFound)
}
