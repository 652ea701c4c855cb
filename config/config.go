/*
config.go - YAML configuration schema

PURPOSE:
  Declares the file format the server boots from: HTTP binding, database
  path, scheduler tuning, leave policies, company holidays and seed
  automation rules. The YAML shapes are deliberately separate from the
  domain types so the file format can stay stable while the domain
  evolves; Policies(), Holidays() and Rules() do the conversion and the
  enum validation.

SEE ALSO:
  - loader.go: Loading and hot reload
  - cmd/server/main.go: Applies the config at startup and on reload
*/
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
)

// Config is the top-level YAML structure.
type Config struct {
	Server    ServerConf    `yaml:"server"`
	Database  DatabaseConf  `yaml:"database"`
	Scheduler SchedulerConf `yaml:"scheduler"`
	Policies  []PolicyConf  `yaml:"policies"`
	Holidays  []HolidayConf `yaml:"holidays"`
	Rules     []RuleConf    `yaml:"rules"`
}

type ServerConf struct {
	Addr string `yaml:"addr"`
}

type DatabaseConf struct {
	Path string `yaml:"path"`
}

type SchedulerConf struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// Interval returns the poll interval with the default applied.
func (s SchedulerConf) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

type PolicyConf struct {
	Type              string  `yaml:"type"`
	AnnualEntitlement float64 `yaml:"annual_entitlement"`
	CarryForwardLimit float64 `yaml:"carry_forward_limit"`
	RequiresApproval  bool    `yaml:"requires_approval"`
	AutoApproveUpTo   float64 `yaml:"auto_approve_up_to"`
}

type HolidayConf struct {
	Name      string `yaml:"name"`
	Date      string `yaml:"date"` // 2006-01-02
	Recurring bool   `yaml:"recurring"`
}

// RuleConf is a seed automation rule. Seeded rules are owned by the file:
// they carry CreatedBy "config" and are replaced wholesale on reload.
type RuleConf struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description"`
	Enabled         bool            `yaml:"enabled"`
	Priority        int             `yaml:"priority"`
	Trigger         TriggerConf     `yaml:"trigger"`
	Actions         []ActionConf    `yaml:"actions"`
	ValidationRules []ConditionConf `yaml:"validation_rules"`
}

type TriggerConf struct {
	Type       string          `yaml:"type"`
	Conditions []ConditionConf `yaml:"conditions"`
}

type ConditionConf struct {
	Type            string `yaml:"type"`
	Operator        string `yaml:"operator"`
	Value           any    `yaml:"value"`
	LogicalOperator string `yaml:"logical_operator"`
}

type ActionConf struct {
	Type         string          `yaml:"type"`
	Parameters   map[string]any  `yaml:"parameters"`
	DelayMinutes int             `yaml:"delay_minutes"`
	Conditions   []ConditionConf `yaml:"conditions"`
}

// SeedRuleOwner marks rules managed by the config file.
const SeedRuleOwner = "config"

// =============================================================================
// CONVERSION
// =============================================================================

// LeavePolicies converts the policy section to domain policies, keyed by
// leave type.
func (c *Config) LeavePolicies() (map[leave.Type]leave.Policy, error) {
	out := make(map[leave.Type]leave.Policy, len(c.Policies))
	for i, p := range c.Policies {
		t := leave.Type(p.Type)
		if !leave.IsKnownType(t) {
			return nil, fmt.Errorf("policies[%d]: unknown leave type %q", i, p.Type)
		}
		if _, dup := out[t]; dup {
			return nil, fmt.Errorf("policies[%d]: duplicate leave type %q", i, p.Type)
		}
		out[t] = leave.Policy{
			Type:              t,
			AnnualEntitlement: decimal.NewFromFloat(p.AnnualEntitlement),
			CarryForwardLimit: decimal.NewFromFloat(p.CarryForwardLimit),
			RequiresApproval:  p.RequiresApproval,
			AutoApproveUpTo:   decimal.NewFromFloat(p.AutoApproveUpTo),
		}
	}
	return out, nil
}

// LeaveHolidays converts the holiday section to domain holidays.
func (c *Config) LeaveHolidays() ([]leave.Holiday, error) {
	out := make([]leave.Holiday, 0, len(c.Holidays))
	for i, h := range c.Holidays {
		date, err := time.Parse("2006-01-02", h.Date)
		if err != nil {
			return nil, fmt.Errorf("holidays[%d] %q: bad date %q", i, h.Name, h.Date)
		}
		out = append(out, leave.Holiday{Name: h.Name, Date: date, Recurring: h.Recurring})
	}
	return out, nil
}

// SeedRules converts the rule section to domain rules with enum
// validation on trigger, condition and action vocabulary.
func (c *Config) SeedRules() ([]automation.AutomationRule, error) {
	out := make([]automation.AutomationRule, 0, len(c.Rules))
	for i, r := range c.Rules {
		trigger := automation.TriggerType(r.Trigger.Type)
		if !knownTrigger(trigger) {
			return nil, fmt.Errorf("rules[%d] %q: unknown trigger type %q", i, r.Name, r.Trigger.Type)
		}
		conds, err := convertConditions(r.Trigger.Conditions)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] %q: trigger: %w", i, r.Name, err)
		}
		validations, err := convertConditions(r.ValidationRules)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] %q: validation_rules: %w", i, r.Name, err)
		}
		actions := make([]automation.RuleAction, 0, len(r.Actions))
		for j, a := range r.Actions {
			at := automation.ActionType(a.Type)
			if !knownAction(at) {
				return nil, fmt.Errorf("rules[%d] %q: actions[%d]: unknown action type %q", i, r.Name, j, a.Type)
			}
			gates, err := convertConditions(a.Conditions)
			if err != nil {
				return nil, fmt.Errorf("rules[%d] %q: actions[%d]: %w", i, r.Name, j, err)
			}
			actions = append(actions, automation.RuleAction{
				Type:         at,
				Parameters:   a.Parameters,
				DelayMinutes: a.DelayMinutes,
				Conditions:   gates,
			})
		}
		out = append(out, automation.AutomationRule{
			Name:            r.Name,
			Description:     r.Description,
			Enabled:         r.Enabled,
			Priority:        r.Priority,
			Trigger:         automation.Trigger{Type: trigger, Conditions: conds},
			Actions:         actions,
			ValidationRules: validations,
			CreatedBy:       SeedRuleOwner,
		})
	}
	return out, nil
}

func convertConditions(confs []ConditionConf) ([]automation.RuleCondition, error) {
	out := make([]automation.RuleCondition, 0, len(confs))
	for i, c := range confs {
		op := automation.Operator(c.Operator)
		switch op {
		case automation.OpEquals, automation.OpNotEquals, automation.OpGreaterThan,
			automation.OpLessThan, automation.OpContains, automation.OpInRange:
		default:
			return nil, fmt.Errorf("conditions[%d]: unknown operator %q", i, c.Operator)
		}
		logical := automation.LogicalAnd
		switch c.LogicalOperator {
		case "", string(automation.LogicalAnd):
		case string(automation.LogicalOr):
			logical = automation.LogicalOr
		default:
			return nil, fmt.Errorf("conditions[%d]: unknown logical operator %q", i, c.LogicalOperator)
		}
		out = append(out, automation.RuleCondition{
			Type:            automation.ConditionType(c.Type),
			Operator:        op,
			Value:           c.Value,
			LogicalOperator: logical,
		})
	}
	return out, nil
}

func knownTrigger(t automation.TriggerType) bool {
	for _, k := range automation.KnownTriggerTypes() {
		if t == k {
			return true
		}
	}
	return false
}

func knownAction(t automation.ActionType) bool {
	for _, k := range automation.KnownActionTypes() {
		if t == k {
			return true
		}
	}
	return false
}
