package automation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/automation"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testContext() *automation.ExecutionContext {
	return &automation.ExecutionContext{
		LeaveRequest: &automation.RequestContext{
			ID:          "req-1",
			EmployeeID:  "emp-1",
			LeaveType:   "CASUAL",
			Duration:    2,
			UserBalance: 8.5,
			StartDate:   time.Date(2026, time.June, 8, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, time.June, 9, 0, 0, 0, 0, time.UTC),
		},
		User: &automation.UserContext{
			ID:         "emp-1",
			Role:       "ENGINEER",
			Department: "ENGINEERING",
			ManagerID:  "emp-2",
			Email:      "alice@example.com",
		},
		CurrentDate: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func cond(t automation.ConditionType, op automation.Operator, v any) automation.RuleCondition {
	return automation.RuleCondition{Type: t, Operator: op, Value: v}
}

// =============================================================================
// FOLD SEMANTICS
// =============================================================================

func TestEvaluateConditions_EmptyListIsTrue(t *testing.T) {
	assert.True(t, automation.EvaluateConditions(nil, testContext()))
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{}, testContext()))
}

func TestEvaluateConditions_OrJoinsOntoRunningResult(t *testing.T) {
	// GIVEN: leave type CASUAL, duration 1
	// WHEN: (type == SICK) OR (duration < 3), the OR carried by the
	//       condition it joins
	// THEN: false OR true -> true

	ctx := testContext()
	ctx.LeaveRequest.Duration = 1

	second := cond(automation.CondDuration, automation.OpLessThan, 3)
	second.LogicalOperator = automation.LogicalOr
	conditions := []automation.RuleCondition{
		cond(automation.CondLeaveType, automation.OpEquals, "SICK"),
		second,
	}

	assert.True(t, automation.EvaluateConditions(conditions, ctx))

	// With both conditions false the OR cannot rescue the result.
	ctx.LeaveRequest.Duration = 5
	assert.False(t, automation.EvaluateConditions(conditions, ctx))
}

func TestEvaluateConditions_DefaultJoinIsAnd(t *testing.T) {
	// No logical operator set: (type == SICK) AND (duration < 3) -> false
	conditions := []automation.RuleCondition{
		cond(automation.CondLeaveType, automation.OpEquals, "SICK"),
		cond(automation.CondDuration, automation.OpLessThan, 3),
	}
	assert.False(t, automation.EvaluateConditions(conditions, testContext()))

	// Both true under AND.
	conditions = []automation.RuleCondition{
		cond(automation.CondLeaveType, automation.OpEquals, "CASUAL"),
		cond(automation.CondDuration, automation.OpLessThan, 3),
	}
	assert.True(t, automation.EvaluateConditions(conditions, testContext()))
}

func TestEvaluateConditions_FoldIsLeftToRight(t *testing.T) {
	// (false OR true) AND false -> false. A right-associative reading
	// (false OR (true AND false)) gives the same here, so also pin
	// (false AND true) OR true -> true, which separates the two.
	a := cond(automation.CondLeaveType, automation.OpEquals, "SICK") // false
	b := cond(automation.CondDuration, automation.OpLessThan, 3)     // true
	b.LogicalOperator = automation.LogicalAnd
	c := cond(automation.CondUserRole, automation.OpEquals, "ENGINEER") // true
	c.LogicalOperator = automation.LogicalOr

	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{a, b, c}, testContext()))
}

func TestEvaluateConditions_IsIdempotent(t *testing.T) {
	conditions := []automation.RuleCondition{
		cond(automation.CondDuration, automation.OpInRange, []any{1, 5}),
	}
	ctx := testContext()
	first := automation.EvaluateConditions(conditions, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, automation.EvaluateConditions(conditions, ctx))
	}
}

// =============================================================================
// OPERATORS
// =============================================================================

func TestEquals_StrictTyping(t *testing.T) {
	ctx := testContext()

	// Numeric kinds compare by value: duration 2 equals int 2 and float 2.0.
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpEquals, 2)}, ctx))
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpEquals, 2.0)}, ctx))

	// A numeric string does not equal a number.
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpEquals, "2")}, ctx))
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpNotEquals, "2")}, ctx))
}

func TestOrderingComparisons_ParseStrings(t *testing.T) {
	ctx := testContext()

	// Numeric strings parse for ordering.
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpLessThan, "3")}, ctx))

	// A non-numeric operand silently fails the comparison, both ways.
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpGreaterThan, "soon")}, ctx))
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondLeaveType, automation.OpLessThan, 3)}, ctx))
}

func TestContains_CaseInsensitive(t *testing.T) {
	ctx := testContext()

	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDepartment, automation.OpContains, "engineer")}, ctx))
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDepartment, automation.OpContains, "finance")}, ctx))
}

func TestInRange_InclusiveBounds(t *testing.T) {
	ctx := testContext()

	// duration 2 in [2, 5]: lower bound inclusive.
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpInRange, []any{2, 5})}, ctx))
	// balance 8.5 in [5, 10].
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondBalance, automation.OpInRange, []float64{5, 10})}, ctx))
	// 12 outside [5, 10].
	ctx.LeaveRequest.Duration = 12
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpInRange, []any{5, 10})}, ctx))
}

func TestInRange_MalformedRangeIsFalse(t *testing.T) {
	ctx := testContext()

	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpInRange, []any{1})}, ctx))
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondDuration, automation.OpInRange, "1-5")}, ctx))
}

// =============================================================================
// CONTEXT EXTRACTION
// =============================================================================

func TestConditions_MissingContextSlices(t *testing.T) {
	ctx := &automation.ExecutionContext{CurrentDate: time.Now()}

	// Nil context value never equals a concrete one.
	assert.False(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondLeaveType, automation.OpEquals, "SICK")}, ctx))
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondUserRole, automation.OpNotEquals, "MANAGER")}, ctx))
}

func TestConditions_CustomTypeReadsSystemState(t *testing.T) {
	ctx := testContext()
	ctx.SystemState = map[string]any{"CUSTOM": "blackout", "pending_count": 7}

	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.CondCustom, automation.OpEquals, "blackout")}, ctx))
	assert.True(t, automation.EvaluateConditions([]automation.RuleCondition{
		cond(automation.ConditionType("pending_count"), automation.OpGreaterThan, 5)}, ctx))
}
