/*
repository.go - Automation rule persistence contract

PURPOSE:
  Defines how rules are stored and queried, plus an in-memory
  implementation used by tests and the zero-config dev server. The
  SQLite-backed implementation lives in store/sqlite.

SEE ALSO:
  - engine.go: The only consumer of List on the hot path
  - store/sqlite/sqlite.go: Durable implementation
*/
package automation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRuleNotFound is returned by Update, Delete and RecordExecution for
// unknown rule IDs. Get returns (nil, nil) for absent rules instead so
// callers can distinguish "missing" from "broken".
var ErrRuleNotFound = errors.New("automation rule not found")

// RuleFilter narrows List results. Zero values mean "no constraint".
type RuleFilter struct {
	Enabled     *bool
	TriggerType TriggerType
	CreatedBy   string
}

// RuleUpdate carries a partial rule update. Nil fields are untouched.
type RuleUpdate struct {
	Name            *string
	Description     *string
	Enabled         *bool
	Priority        *int
	Trigger         *Trigger
	Actions         *[]RuleAction
	ValidationRules *[]RuleCondition
}

// RuleRepository stores automation rules.
type RuleRepository interface {
	// Create persists a new rule. Assigns an ID when empty and zeroes
	// the execution bookkeeping.
	Create(ctx context.Context, rule *AutomationRule) error

	// Get returns the rule or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*AutomationRule, error)

	// List returns rules matching the filter, ordered by priority
	// ascending then creation time.
	List(ctx context.Context, filter RuleFilter) ([]AutomationRule, error)

	// Update applies a partial update and refreshes UpdatedAt.
	Update(ctx context.Context, id string, upd RuleUpdate) (*AutomationRule, error)

	// Delete removes the rule.
	Delete(ctx context.Context, id string) error

	// RecordExecution bumps ExecutionCount and sets LastExecuted.
	RecordExecution(ctx context.Context, id string, at time.Time) error
}

// =============================================================================
// MEMORY IMPLEMENTATION
// =============================================================================

// MemoryRuleRepository is a map-backed RuleRepository.
type MemoryRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*AutomationRule
}

func NewMemoryRuleRepository() *MemoryRuleRepository {
	return &MemoryRuleRepository{rules: make(map[string]*AutomationRule)}
}

func (r *MemoryRuleRepository) Create(_ context.Context, rule *AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	rule.ExecutionCount = 0
	rule.LastExecuted = nil

	cp := cloneRule(rule)
	r.rules[rule.ID] = &cp
	return nil
}

func (r *MemoryRuleRepository) Get(_ context.Context, id string) (*AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, nil
	}
	cp := cloneRule(rule)
	return &cp, nil
}

func (r *MemoryRuleRepository) List(_ context.Context, filter RuleFilter) ([]AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AutomationRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if filter.Enabled != nil && rule.Enabled != *filter.Enabled {
			continue
		}
		if filter.TriggerType != "" && rule.Trigger.Type != filter.TriggerType {
			continue
		}
		if filter.CreatedBy != "" && rule.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, cloneRule(rule))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRuleRepository) Update(_ context.Context, id string, upd RuleUpdate) (*AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	if upd.Name != nil {
		rule.Name = *upd.Name
	}
	if upd.Description != nil {
		rule.Description = *upd.Description
	}
	if upd.Enabled != nil {
		rule.Enabled = *upd.Enabled
	}
	if upd.Priority != nil {
		rule.Priority = *upd.Priority
	}
	if upd.Trigger != nil {
		rule.Trigger = *upd.Trigger
	}
	if upd.Actions != nil {
		rule.Actions = *upd.Actions
	}
	if upd.ValidationRules != nil {
		rule.ValidationRules = *upd.ValidationRules
	}
	rule.UpdatedAt = time.Now().UTC()

	cp := cloneRule(rule)
	return &cp, nil
}

func (r *MemoryRuleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

func (r *MemoryRuleRepository) RecordExecution(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return ErrRuleNotFound
	}
	rule.ExecutionCount++
	t := at.UTC()
	rule.LastExecuted = &t
	return nil
}

func cloneRule(rule *AutomationRule) AutomationRule {
	cp := *rule
	cp.Trigger.Conditions = append([]RuleCondition(nil), rule.Trigger.Conditions...)
	cp.Actions = make([]RuleAction, len(rule.Actions))
	for i, a := range rule.Actions {
		cp.Actions[i] = a
		cp.Actions[i].Conditions = append([]RuleCondition(nil), a.Conditions...)
	}
	cp.ValidationRules = append([]RuleCondition(nil), rule.ValidationRules...)
	if rule.LastExecuted != nil {
		t := *rule.LastExecuted
		cp.LastExecuted = &t
	}
	return cp
}
