/*
conditions.go - Condition evaluation

PURPOSE:
  Evaluates a flat condition list against an execution context. The list is
  folded left to right: the first condition seeds the running result, and
  each later condition's own LogicalOperator (default AND) joins that
  condition onto the running result.

EVALUATION RULES:
  - Empty list is vacuously true
  - EQUALS/NOT_EQUALS: strict equality; numeric kinds compare by value,
    but a string never equals a number
  - GREATER_THAN/LESS_THAN: both sides parsed numerically; a failed parse
    makes the comparison false rather than an error
  - CONTAINS: case-insensitive substring over string-coerced values
  - IN_RANGE: value must be a 2-element [min, max]; inclusive bounds
  - Unrecognized condition types read from SystemState

  Evaluation is pure: no side effects, same inputs give same outputs.

SEE ALSO:
  - engine.go: Calls this for trigger and validation conditions
  - actions.go: Calls this for per-action condition gates
*/
package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EvaluateConditions folds conditions over ctx. Empty conditions are true.
func EvaluateConditions(conditions []RuleCondition, ctx *ExecutionContext) bool {
	if len(conditions) == 0 {
		return true
	}

	result := evaluateCondition(conditions[0], ctx)
	for i := 1; i < len(conditions); i++ {
		// Each condition carries the operator that joins it onto the
		// running result.
		next := evaluateCondition(conditions[i], ctx)
		if conditions[i].LogicalOperator == LogicalOr {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

func evaluateCondition(c RuleCondition, ctx *ExecutionContext) bool {
	return applyOperator(c.Operator, contextValue(c.Type, ctx), c.Value)
}

// contextValue extracts the value a condition type inspects. Missing
// context slices yield nil, which fails every comparison except NOT_EQUALS
// against a non-nil value.
func contextValue(t ConditionType, ctx *ExecutionContext) any {
	switch t {
	case CondLeaveType:
		if ctx.LeaveRequest != nil {
			return ctx.LeaveRequest.LeaveType
		}
		return nil
	case CondDuration:
		if ctx.LeaveRequest != nil {
			return ctx.LeaveRequest.Duration
		}
		return nil
	case CondBalance:
		if ctx.LeaveRequest != nil {
			return ctx.LeaveRequest.UserBalance
		}
		return nil
	case CondDateRange:
		if ctx.LeaveRequest != nil {
			return ctx.LeaveRequest.StartDate
		}
		return nil
	case CondUserRole:
		if ctx.User != nil {
			return ctx.User.Role
		}
		return nil
	case CondDepartment:
		if ctx.User != nil {
			return ctx.User.Department
		}
		return nil
	default:
		// CUSTOM and anything unrecognized route to system state.
		if ctx.SystemState != nil {
			return ctx.SystemState[string(t)]
		}
		return nil
	}
}

func applyOperator(op Operator, contextVal, condVal any) bool {
	switch op {
	case OpEquals:
		return strictEqual(contextVal, condVal)
	case OpNotEquals:
		return !strictEqual(contextVal, condVal)
	case OpGreaterThan:
		l, lok := toFloat(contextVal)
		r, rok := toFloat(condVal)
		// A failed numeric parse behaves like a NaN comparison: false.
		return lok && rok && l > r
	case OpLessThan:
		l, lok := toFloat(contextVal)
		r, rok := toFloat(condVal)
		return lok && rok && l < r
	case OpContains:
		return strings.Contains(
			strings.ToLower(coerceString(contextVal)),
			strings.ToLower(coerceString(condVal)),
		)
	case OpInRange:
		min, max, ok := rangeBounds(condVal)
		if !ok {
			return false
		}
		v, vok := toFloat(contextVal)
		return vok && v >= min && v <= max
	default:
		return false
	}
}

// strictEqual compares without cross-type coercion: numeric kinds compare
// by value, everything else requires matching kinds. "3" does not equal 3.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := numericValue(a)
	bf, bNum := numericValue(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
}

// numericValue recognizes numeric kinds only; strings are NOT parsed here.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toFloat parses numerically for ordering comparisons; unlike strictEqual,
// numeric strings DO parse here.
func toFloat(v any) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return 0, false
}

func coerceString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// rangeBounds extracts [min, max] from the IN_RANGE condition value.
// Accepts the slice shapes JSON and YAML decoding produce.
func rangeBounds(v any) (min, max float64, ok bool) {
	var items []any
	switch s := v.(type) {
	case []any:
		items = s
	case []float64:
		for _, f := range s {
			items = append(items, f)
		}
	case []int:
		for _, i := range s {
			items = append(items, i)
		}
	default:
		return 0, 0, false
	}
	if len(items) != 2 {
		return 0, 0, false
	}
	min, minOK := toFloat(items[0])
	max, maxOK := toFloat(items[1])
	return min, max, minOK && maxOK
}
