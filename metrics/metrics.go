// Package metrics exposes Prometheus collectors for the automation engine
// and the deferred action scheduler. Collectors register on the default
// registry; the HTTP server serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RulesEvaluated counts rule evaluations by trigger and outcome
	// (matched, skipped, validation_failed, error).
	RulesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_automation_rules_evaluated_total",
		Help: "Automation rule evaluations by trigger type and outcome.",
	}, []string{"trigger", "outcome"})

	// ActionsExecuted counts action executions by type and status.
	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_automation_actions_executed_total",
		Help: "Automation action executions by action type and status.",
	}, []string{"action_type", "status"})

	// RuleExecutionDuration observes wall-clock time per rule execution.
	RuleExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leave_automation_rule_duration_seconds",
		Help:    "Wall-clock duration of individual rule executions.",
		Buckets: prometheus.DefBuckets,
	})

	// ScheduledActionsEnqueued counts deferred actions queued by rules.
	ScheduledActionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_automation_scheduled_actions_enqueued_total",
		Help: "Deferred actions queued for later execution.",
	})

	// ScheduledActionsProcessed counts deferred action runs by status.
	ScheduledActionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leave_automation_scheduled_actions_processed_total",
		Help: "Deferred action executions by status.",
	}, []string{"status"})
)
