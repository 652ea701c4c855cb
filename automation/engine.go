/*
engine.go - Rule execution engine

PURPOSE:
  Runs every enabled rule registered for a trigger against an execution
  context, in priority order, and reports per-rule results. One rule's
  failure never stops the others; the only error that aborts a run is a
  failure to load the rules themselves.

EXECUTION PER RULE:
  1. Trigger conditions. A non-match is a quiet skip: Success=false, no
     errors recorded.
  2. Validation rules. A failed validation short-circuits the rule with
     the single error "Validation rules not met".
  3. Actions, in listed order. Actions carrying a delay are captured as
     NextActions instead of running; per-action condition gates can skip
     individual actions; handler failures are accumulated and the
     remaining actions still run.

SEE ALSO:
  - conditions.go: The condition fold
  - actions.go: Handler dispatch and error wrapping
  - api/scheduler.go: Executes the NextActions this engine defers
*/
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/metrics"
)

const validationFailedMessage = "Validation rules not met"

// Engine evaluates automation rules for lifecycle triggers.
type Engine struct {
	rules  RuleRepository
	exec   *Executor
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(rules RuleRepository, exec *Executor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, exec: exec, logger: logger, now: time.Now}
}

// ExecuteRules runs all enabled rules for the trigger. The returned slice
// holds one result per rule in execution order. Only a rule-fetch failure
// produces a non-nil error.
func (e *Engine) ExecuteRules(ctx context.Context, trigger TriggerType, execCtx *ExecutionContext) ([]ExecutionResult, error) {
	enabled := true
	rules, err := e.rules.List(ctx, RuleFilter{Enabled: &enabled, TriggerType: trigger})
	if err != nil {
		return nil, fmt.Errorf("failed to execute automation rules: %w", err)
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })

	results := make([]ExecutionResult, 0, len(rules))
	for i := range rules {
		result := e.executeRule(ctx, &rules[i], execCtx)
		results = append(results, result)

		if result.Success {
			if err := e.rules.RecordExecution(ctx, rules[i].ID, e.now()); err != nil {
				e.logger.Warn("failed to record rule execution",
					"ruleId", rules[i].ID, "error", err)
			}
		}
	}
	return results, nil
}

func (e *Engine) executeRule(ctx context.Context, rule *AutomationRule, execCtx *ExecutionContext) ExecutionResult {
	started := e.now()
	result := ExecutionResult{RuleID: rule.ID, RuleName: rule.Name}
	defer func() {
		result.ExecutionTime = e.now().Sub(started)
		metrics.RuleExecutionDuration.Observe(result.ExecutionTime.Seconds())
	}()

	if !EvaluateConditions(rule.Trigger.Conditions, execCtx) {
		metrics.RulesEvaluated.WithLabelValues(string(rule.Trigger.Type), "skipped").Inc()
		return result
	}

	if len(rule.ValidationRules) > 0 && !EvaluateConditions(rule.ValidationRules, execCtx) {
		result.Errors = append(result.Errors, validationFailedMessage)
		metrics.RulesEvaluated.WithLabelValues(string(rule.Trigger.Type), "validation_failed").Inc()
		return result
	}

	result.Success = true
	for _, action := range rule.Actions {
		if len(action.Conditions) > 0 && !EvaluateConditions(action.Conditions, execCtx) {
			metrics.ActionsExecuted.WithLabelValues(string(action.Type), "skipped").Inc()
			continue
		}

		if action.DelayMinutes > 0 {
			result.NextActions = append(result.NextActions, ScheduledAction{
				ID:        uuid.NewString(),
				RuleID:    rule.ID,
				Action:    action,
				ExecuteAt: e.now().Add(time.Duration(action.DelayMinutes) * time.Minute),
			})
			metrics.ScheduledActionsEnqueued.Inc()
			continue
		}

		if err := e.exec.Execute(ctx, action, execCtx); err != nil {
			result.Errors = append(result.Errors, err.Error())
			metrics.ActionsExecuted.WithLabelValues(string(action.Type), "error").Inc()
			e.logger.Warn("automation action failed",
				"ruleId", rule.ID, "actionType", action.Type, "error", err)
			continue
		}
		result.ActionsExecuted = append(result.ActionsExecuted, string(action.Type))
		metrics.ActionsExecuted.WithLabelValues(string(action.Type), "ok").Inc()
	}

	outcome := "matched"
	if len(result.Errors) > 0 {
		outcome = "error"
	}
	metrics.RulesEvaluated.WithLabelValues(string(rule.Trigger.Type), outcome).Inc()
	return result
}
