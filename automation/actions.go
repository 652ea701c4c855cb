/*
actions.go - Action execution

PURPOSE:
  Maps action types to their handlers and runs them. Handlers delegate to
  collaborators (lifecycle, balances, notifier) so the executor itself
  stays free of domain storage concerns.

FAILURE SEMANTICS:
  Every handler failure is wrapped in *ActionError naming the action type.
  The engine catches per-action and continues with the remaining actions
  of the same rule. Notification failures never touch lifecycle state;
  they are independent side effects.

SEE ALSO:
  - engine.go: Per-action error containment
  - notify/notify.go: The notification collaborator
*/
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/warp/leave-engine/notify"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownActionType is returned for action types without a handler.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrMissingContext is returned when an action needs a context slice
	// (leave request, user) the trigger did not provide.
	ErrMissingContext = errors.New("action requires context not present")
)

// ActionError wraps a handler failure with the offending action type.
type ActionError struct {
	Type ActionType
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Type, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// Lifecycle applies rule-driven decisions to leave requests. Implemented
// by an adapter over the leave service; kept narrow so the executor can be
// tested with fakes.
type Lifecycle interface {
	AutoApprove(ctx context.Context, requestID, actor string) error
	AutoReject(ctx context.Context, requestID, actor, reason string) error
}

// BalanceAdjuster applies atomic balance operations for UPDATE_BALANCE.
type BalanceAdjuster interface {
	// Grant credits amount days of balanceType to the employee.
	Grant(ctx context.Context, employeeID, balanceType string, amount float64) error
	// Deduct consumes amount days, failing when unavailable.
	Deduct(ctx context.Context, employeeID, balanceType string, amount float64) error
}

// =============================================================================
// HANDLER REGISTRY
// =============================================================================

// Handler executes one action type.
type Handler interface {
	Type() ActionType
	Execute(ctx context.Context, action RuleAction, execCtx *ExecutionContext) error
}

// Executor dispatches actions to registered handlers. Register only at
// startup; Execute is safe for concurrent use afterwards.
type Executor struct {
	handlers map[ActionType]Handler
}

func NewExecutor() *Executor {
	return &Executor{handlers: make(map[ActionType]Handler)}
}

// Register adds a handler. Panics on duplicates to surface misconfiguration
// at startup.
func (e *Executor) Register(h Handler) {
	if _, exists := e.handlers[h.Type()]; exists {
		panic(fmt.Sprintf("action executor: duplicate handler for %q", h.Type()))
	}
	e.handlers[h.Type()] = h
}

// Execute runs one action. Failures come back as *ActionError.
func (e *Executor) Execute(ctx context.Context, action RuleAction, execCtx *ExecutionContext) error {
	h, ok := e.handlers[action.Type]
	if !ok {
		return &ActionError{Type: action.Type, Err: fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)}
	}
	if err := h.Execute(ctx, action, execCtx); err != nil {
		return &ActionError{Type: action.Type, Err: err}
	}
	return nil
}

// NewDefaultExecutor wires every built-in handler.
func NewDefaultExecutor(lc Lifecycle, bal BalanceAdjuster, n notify.Notifier, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := NewExecutor()
	e.Register(&autoApproveHandler{lifecycle: lc})
	e.Register(&autoRejectHandler{lifecycle: lc})
	e.Register(&notifyHandler{actionType: ActionNotifyManager, template: "manager_notification", notifier: n})
	e.Register(&notifyHandler{actionType: ActionEscalate, template: "escalation", notifier: n})
	e.Register(&notifyHandler{actionType: ActionSendEmail, template: "email", notifier: n})
	e.Register(&updateBalanceHandler{balances: bal})
	e.Register(&logEventHandler{logger: logger})
	return e
}

// =============================================================================
// BUILT-IN HANDLERS
// =============================================================================

const automationActor = "automation"

type autoApproveHandler struct {
	lifecycle Lifecycle
}

func (h *autoApproveHandler) Type() ActionType { return ActionAutoApprove }

func (h *autoApproveHandler) Execute(ctx context.Context, action RuleAction, execCtx *ExecutionContext) error {
	if execCtx.LeaveRequest == nil {
		return fmt.Errorf("%w: leave request", ErrMissingContext)
	}
	actor := stringParam(action.Parameters, "approver", automationActor)
	return h.lifecycle.AutoApprove(ctx, execCtx.LeaveRequest.ID, actor)
}

type autoRejectHandler struct {
	lifecycle Lifecycle
}

func (h *autoRejectHandler) Type() ActionType { return ActionAutoReject }

func (h *autoRejectHandler) Execute(ctx context.Context, action RuleAction, execCtx *ExecutionContext) error {
	if execCtx.LeaveRequest == nil {
		return fmt.Errorf("%w: leave request", ErrMissingContext)
	}
	reason := stringParam(action.Parameters, "reason", "rejected by automation rule")
	return h.lifecycle.AutoReject(ctx, execCtx.LeaveRequest.ID, automationActor, reason)
}

// notifyHandler covers NOTIFY_MANAGER, ESCALATE and SEND_EMAIL; they differ
// only in default template and recipient resolution.
type notifyHandler struct {
	actionType ActionType
	template   string
	notifier   notify.Notifier
}

func (h *notifyHandler) Type() ActionType { return h.actionType }

func (h *notifyHandler) Execute(ctx context.Context, action RuleAction, execCtx *ExecutionContext) error {
	n := notify.Notification{
		Template:   stringParam(action.Parameters, "template", h.template),
		Subject:    stringParam(action.Parameters, "subject", ""),
		Body:       stringParam(action.Parameters, "message", ""),
		Recipients: h.recipients(action, execCtx),
	}
	if len(n.Recipients) == 0 {
		return fmt.Errorf("no recipients resolvable for %s", h.actionType)
	}
	if execCtx.LeaveRequest != nil {
		n.Metadata = map[string]string{"requestId": execCtx.LeaveRequest.ID}
	}
	return h.notifier.Send(ctx, n)
}

func (h *notifyHandler) recipients(action RuleAction, execCtx *ExecutionContext) []string {
	if rs := stringSliceParam(action.Parameters, "recipients"); len(rs) > 0 {
		return rs
	}
	if execCtx.User == nil {
		return nil
	}
	switch h.actionType {
	case ActionNotifyManager, ActionEscalate:
		if execCtx.User.ManagerID != "" {
			return []string{execCtx.User.ManagerID}
		}
	case ActionSendEmail:
		if execCtx.User.Email != "" {
			return []string{execCtx.User.Email}
		}
	}
	return nil
}

type updateBalanceHandler struct {
	balances BalanceAdjuster
}

func (h *updateBalanceHandler) Type() ActionType { return ActionUpdateBalance }

func (h *updateBalanceHandler) Execute(ctx context.Context, action RuleAction, execCtx *ExecutionContext) error {
	if execCtx.User == nil {
		return fmt.Errorf("%w: user", ErrMissingContext)
	}
	amount, ok := toFloat(action.Parameters["amount"])
	if !ok || amount <= 0 {
		return fmt.Errorf("parameters.amount must be a positive number")
	}
	balanceType := stringParam(action.Parameters, "balanceType", "")
	if balanceType == "" {
		return fmt.Errorf("parameters.balanceType is required")
	}

	switch op := stringParam(action.Parameters, "operation", ""); op {
	case "increment":
		return h.balances.Grant(ctx, execCtx.User.ID, balanceType, amount)
	case "decrement":
		return h.balances.Deduct(ctx, execCtx.User.ID, balanceType, amount)
	default:
		return fmt.Errorf("parameters.operation must be 'increment' or 'decrement', got %q", op)
	}
}

type logEventHandler struct {
	logger *slog.Logger
}

func (h *logEventHandler) Type() ActionType { return ActionLogEvent }

func (h *logEventHandler) Execute(_ context.Context, action RuleAction, execCtx *ExecutionContext) error {
	msg := stringParam(action.Parameters, "message", "automation event")
	attrs := []any{}
	if execCtx.LeaveRequest != nil {
		attrs = append(attrs, "requestId", execCtx.LeaveRequest.ID, "leaveType", execCtx.LeaveRequest.LeaveType)
	}
	if execCtx.User != nil {
		attrs = append(attrs, "employeeId", execCtx.User.ID)
	}

	switch stringParam(action.Parameters, "level", "info") {
	case "debug":
		h.logger.Debug(msg, attrs...)
	case "warn", "warning":
		h.logger.Warn(msg, attrs...)
	case "error":
		h.logger.Error(msg, attrs...)
	default:
		h.logger.Info(msg, attrs...)
	}
	return nil
}

// =============================================================================
// PARAMETER HELPERS
// =============================================================================

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func stringSliceParam(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
