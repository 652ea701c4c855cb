/*
Package automation implements the rule-based automation engine.

PURPOSE:
  Reacts to leave lifecycle events with configurable rules. A rule bundles
  a trigger (event type + conditions), optional validation conditions, and
  an ordered action list. The engine selects enabled rules for a trigger,
  orders them by priority, and executes each in isolation, collecting a
  per-rule result.

KEY CONCEPTS IN THIS FILE (types.go):
  - RuleCondition: one atomic predicate over the execution context
  - RuleAction: one side effect, optionally delayed or gated
  - AutomationRule: the persisted rule record
  - ExecutionContext: an ephemeral per-trigger snapshot
  - ExecutionResult: one per rule evaluated within a trigger

DESIGN PRINCIPLES:
  1. Containment: one misconfigured rule never blocks its siblings
  2. Delay as data: deferred actions are recorded, never slept on
  3. Pure evaluation: condition checks have no side effects

SEE ALSO:
  - conditions.go: The left-to-right condition fold
  - actions.go: The action executor and its collaborators
  - engine.go: Orchestration
  - repository.go: Rule persistence contract
*/
package automation

import (
	"encoding/json"
	"time"
)

// =============================================================================
// TRIGGERS
// =============================================================================

// TriggerType names the lifecycle event a rule reacts to.
type TriggerType string

const (
	TriggerLeaveRequest    TriggerType = "LEAVE_REQUEST"
	TriggerApprovalPending TriggerType = "APPROVAL_PENDING"
	TriggerLeaveApproved   TriggerType = "LEAVE_APPROVED"
	TriggerLeaveRejected   TriggerType = "LEAVE_REJECTED"
	TriggerSchedule        TriggerType = "SCHEDULE_TRIGGER"
)

// KnownTriggerTypes lists every trigger the engine dispatches.
func KnownTriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerLeaveRequest, TriggerApprovalPending,
		TriggerLeaveApproved, TriggerLeaveRejected, TriggerSchedule,
	}
}

// Trigger couples an event type with its match conditions.
type Trigger struct {
	Type       TriggerType     `json:"type" yaml:"type"`
	Conditions []RuleCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// =============================================================================
// CONDITIONS
// =============================================================================

// ConditionType selects which context value a condition inspects.
// Unrecognized types (including CUSTOM) fall back to SystemState lookup.
type ConditionType string

const (
	CondLeaveType  ConditionType = "LEAVE_TYPE"
	CondDuration   ConditionType = "DURATION"
	CondUserRole   ConditionType = "USER_ROLE"
	CondDepartment ConditionType = "DEPARTMENT"
	CondBalance    ConditionType = "BALANCE"
	CondDateRange  ConditionType = "DATE_RANGE"
	CondCustom     ConditionType = "CUSTOM"
)

// Operator compares the context value against the condition value.
type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
	OpContains    Operator = "CONTAINS"
	OpInRange     Operator = "IN_RANGE"
)

// LogicalOperator joins a condition onto the running fold result.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// RuleCondition is one atomic predicate. LogicalOperator on condition i
// governs how condition i itself joins the running result of the
// conditions before it: a strict left-to-right fold, no precedence, no
// parentheses. The first condition seeds the result.
type RuleCondition struct {
	ID              string          `json:"id,omitempty" yaml:"id,omitempty"`
	Type            ConditionType   `json:"type" yaml:"type"`
	Operator        Operator        `json:"operator" yaml:"operator"`
	Value           any             `json:"value" yaml:"value"`
	LogicalOperator LogicalOperator `json:"logicalOperator,omitempty" yaml:"logical_operator,omitempty"`
}

// =============================================================================
// ACTIONS
// =============================================================================

// ActionType names a side effect.
type ActionType string

const (
	ActionAutoApprove   ActionType = "AUTO_APPROVE"
	ActionAutoReject    ActionType = "AUTO_REJECT"
	ActionNotifyManager ActionType = "NOTIFY_MANAGER"
	ActionEscalate      ActionType = "ESCALATE"
	ActionSendEmail     ActionType = "SEND_EMAIL"
	ActionUpdateBalance ActionType = "UPDATE_BALANCE"
	ActionLogEvent      ActionType = "LOG_EVENT"
)

// KnownActionTypes lists every action type with a built-in handler.
func KnownActionTypes() []ActionType {
	return []ActionType{
		ActionAutoApprove, ActionAutoReject, ActionNotifyManager,
		ActionEscalate, ActionSendEmail, ActionUpdateBalance, ActionLogEvent,
	}
}

// RuleAction is one side effect within a rule. DelayMinutes > 0 means the
// action is scheduled for later execution instead of running inline.
// Conditions, when present, gate this individual action.
type RuleAction struct {
	ID           string          `json:"id,omitempty" yaml:"id,omitempty"`
	Type         ActionType      `json:"type" yaml:"type"`
	Parameters   map[string]any  `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	DelayMinutes int             `json:"delayMinutes,omitempty" yaml:"delay_minutes,omitempty"`
	Conditions   []RuleCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// =============================================================================
// RULES
// =============================================================================

// AutomationRule is the persisted rule record. Lower Priority executes
// earlier. ExecutionCount and LastExecuted are maintained by the
// repository, not by callers.
type AutomationRule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Enabled         bool            `json:"enabled"`
	Priority        int             `json:"priority"`
	Trigger         Trigger         `json:"trigger"`
	Actions         []RuleAction    `json:"actions"`
	ValidationRules []RuleCondition `json:"validationRules,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	LastExecuted    *time.Time      `json:"lastExecuted,omitempty"`
	ExecutionCount  int64           `json:"executionCount"`
}

// =============================================================================
// EXECUTION CONTEXT - Ephemeral per-trigger snapshot
// =============================================================================

// RequestContext is the leave-request slice of the execution context.
// Duration and UserBalance are plain numbers: conditions compare them
// numerically.
type RequestContext struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	LeaveType   string    `json:"leaveType"`
	Duration    float64   `json:"duration"`
	UserBalance float64   `json:"userBalance"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Reason      string    `json:"reason,omitempty"`
}

// UserContext is the employee slice of the execution context.
type UserContext struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department"`
	ManagerID  string `json:"managerId,omitempty"`
	Email      string `json:"email,omitempty"`
}

// ExecutionContext is constructed per trigger and lives only for the
// duration of one engine invocation. It is never persisted, except as a
// snapshot alongside scheduled (deferred) actions.
type ExecutionContext struct {
	LeaveRequest *RequestContext `json:"leaveRequest,omitempty"`
	User         *UserContext    `json:"user,omitempty"`
	CurrentDate  time.Time       `json:"currentDate"`
	SystemState  map[string]any  `json:"systemState,omitempty"`
}

// =============================================================================
// EXECUTION RESULT - One per rule evaluated within a trigger
// =============================================================================

// ScheduledAction is a deferred action recorded by the engine. A separate
// scheduler executes it at ExecuteAt; the engine itself never sleeps.
type ScheduledAction struct {
	ID        string     `json:"id"`
	RuleID    string     `json:"ruleId"`
	Action    RuleAction `json:"action"`
	ExecuteAt time.Time  `json:"executeAt"`
}

// ExecutionResult is the outcome of evaluating one rule. Success means the
// trigger and validation conditions matched; action failures accumulate in
// Errors without flipping Success.
type ExecutionResult struct {
	RuleID          string            `json:"ruleId"`
	RuleName        string            `json:"ruleName"`
	Success         bool              `json:"success"`
	ActionsExecuted []string          `json:"actionsExecuted"`
	Errors          []string          `json:"errors"`
	ExecutionTime   time.Duration     `json:"-"`
	NextActions     []ScheduledAction `json:"nextActions,omitempty"`
}

// MarshalJSON emits ExecutionTime as integer milliseconds under
// executionTimeMs; a raw Duration would serialize as nanoseconds.
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	type plain ExecutionResult
	return json.Marshal(struct {
		plain
		ExecutionTimeMs int64 `json:"executionTimeMs"`
	}{plain(r), r.ExecutionTime.Milliseconds()})
}

func (r *ExecutionResult) UnmarshalJSON(data []byte) error {
	type plain ExecutionResult
	aux := struct {
		*plain
		ExecutionTimeMs int64 `json:"executionTimeMs"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ExecutionTime = time.Duration(aux.ExecutionTimeMs) * time.Millisecond
	return nil
}
