package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
)

const sampleConfig = `
server:
  addr: ":9090"
database:
  path: "test.db"
scheduler:
  enabled: true
  interval_seconds: 30
policies:
  - type: CASUAL
    annual_entitlement: 12
    carry_forward_limit: 5
    requires_approval: true
  - type: SICK
    annual_entitlement: 10
    auto_approve_up_to: 2
holidays:
  - name: "Republic Day"
    date: "2026-01-26"
    recurring: true
  - name: "Founders Day"
    date: "2026-06-03"
rules:
  - name: "Auto-approve short sick leave"
    enabled: true
    priority: 1
    trigger:
      type: LEAVE_REQUEST
      conditions:
        - type: LEAVE_TYPE
          operator: EQUALS
          value: SICK
        - type: DURATION
          operator: LESS_THAN
          value: 3
          logical_operator: AND
    actions:
      - type: AUTO_APPROVE
      - type: ESCALATE
        delay_minutes: 60
        parameters:
          recipients: [hr-ops]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoader_LoadsFullConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	loader, err := config.NewLoader(path, nil)
	require.NoError(t, err)
	cfg := loader.Config()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval())

	policies, err := cfg.LeavePolicies()
	require.NoError(t, err)
	require.Len(t, policies, 2)
	casual := policies[leave.TypeCasual]
	assert.True(t, casual.AnnualEntitlement.Equal(decimal.NewFromInt(12)))
	assert.True(t, casual.CarryForwardLimit.Equal(decimal.NewFromInt(5)))
	assert.True(t, casual.RequiresApproval)
	sick := policies[leave.TypeSick]
	assert.True(t, sick.AutoApproveUpTo.Equal(decimal.NewFromInt(2)))

	holidays, err := cfg.LeaveHolidays()
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "Republic Day", holidays[0].Name)
	assert.True(t, holidays[0].Recurring)
	assert.Equal(t, time.Date(2026, time.June, 3, 0, 0, 0, 0, time.UTC), holidays[1].Date)

	rules, err := cfg.SeedRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	rule := rules[0]
	assert.Equal(t, config.SeedRuleOwner, rule.CreatedBy)
	assert.Equal(t, automation.TriggerLeaveRequest, rule.Trigger.Type)
	require.Len(t, rule.Trigger.Conditions, 2)
	assert.Equal(t, automation.CondLeaveType, rule.Trigger.Conditions[0].Type)
	assert.Equal(t, automation.LogicalAnd, rule.Trigger.Conditions[0].LogicalOperator, "default joiner")
	require.Len(t, rule.Actions, 2)
	assert.Equal(t, automation.ActionAutoApprove, rule.Actions[0].Type)
	assert.Equal(t, 60, rule.Actions[1].DelayMinutes)
}

func TestLoader_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "scheduler:\n  enabled: false\n")

	loader, err := config.NewLoader(path, nil)
	require.NoError(t, err)
	cfg := loader.Config()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "leave.db", cfg.Database.Path)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval())
}

func TestLoader_RejectsBadVocabulary(t *testing.T) {
	cases := map[string]string{
		"unknown leave type": `
policies:
  - type: VACATIONS
    annual_entitlement: 10
`,
		"duplicate policy type": `
policies:
  - type: CASUAL
    annual_entitlement: 10
  - type: CASUAL
    annual_entitlement: 12
`,
		"bad holiday date": `
holidays:
  - name: "Oops"
    date: "26-01-2026"
`,
		"unknown trigger type": `
rules:
  - name: "r"
    trigger:
      type: ON_SUBMIT
`,
		"unknown action type": `
rules:
  - name: "r"
    trigger:
      type: LEAVE_REQUEST
    actions:
      - type: DO_THINGS
`,
		"unknown operator": `
rules:
  - name: "r"
    trigger:
      type: LEAVE_REQUEST
      conditions:
        - type: DURATION
          operator: AT_LEAST
          value: 1
`,
		"unknown logical operator": `
rules:
  - name: "r"
    trigger:
      type: LEAVE_REQUEST
      conditions:
        - type: DURATION
          operator: EQUALS
          value: 1
          logical_operator: XOR
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, body)
			_, err := config.NewLoader(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := config.NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoader_ReloadNotifiesCallbacks(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9090\"\n")
	loader, err := config.NewLoader(path, nil)
	require.NoError(t, err)

	var seen []*config.Config
	loader.OnChange(func(c *config.Config) { seen = append(seen, c) })

	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o644))
	cfg, err := loader.Reload()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, ":7070", loader.Config().Server.Addr)
	require.Len(t, seen, 1)
	assert.Same(t, cfg, seen[0])
}

func TestLoader_FailedReloadKeepsPrevious(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9090\"\n")
	loader, err := config.NewLoader(path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
	_, err = loader.Reload()
	require.Error(t, err)

	assert.Equal(t, ":9090", loader.Config().Server.Addr)
}
