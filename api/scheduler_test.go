package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/notify"
)

// =============================================================================
// FIXTURE
// =============================================================================

type schedulerFixture struct {
	scheduler *api.ActionScheduler
	queue     *automation.MemoryScheduledActionStore
	notifier  *notify.Recorder
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	store := leave.NewMemoryStore()
	svc := &leave.Service{
		Requests:  store,
		Balances:  store,
		Employees: store,
		Holidays:  store,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := &notify.Recorder{}
	exec := automation.NewDefaultExecutor(
		api.NewLifecycleAdapter(svc),
		api.NewBalanceAdapter(svc),
		notifier,
		logger,
	)

	queue := automation.NewMemoryScheduledActionStore()
	scheduler := api.NewActionScheduler(queue, exec, logger)
	return &schedulerFixture{scheduler: scheduler, queue: queue, notifier: notifier}
}

func (f *schedulerFixture) enqueue(t *testing.T, id string, at time.Time, action automation.RuleAction, execCtx *automation.ExecutionContext) {
	t.Helper()
	require.NoError(t, f.queue.Enqueue(context.Background(), automation.ScheduledAction{
		ID:        id,
		RuleID:    "rule-1",
		Action:    action,
		ExecuteAt: at,
	}, execCtx))
}

func pendingContext() *automation.ExecutionContext {
	return &automation.ExecutionContext{
		LeaveRequest: &automation.RequestContext{ID: "req-1", EmployeeID: "emp-1", LeaveType: "CASUAL"},
		User:         &automation.UserContext{ID: "emp-1", ManagerID: "emp-2"},
		CurrentDate:  time.Now().UTC(),
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestRunNow_ExecutesDueActions(t *testing.T) {
	f := newSchedulerFixture(t)
	past := time.Now().UTC().Add(-time.Hour)

	f.enqueue(t, "a-due", past,
		automation.RuleAction{Type: automation.ActionEscalate}, pendingContext())
	f.enqueue(t, "a-future", time.Now().UTC().Add(time.Hour),
		automation.RuleAction{Type: automation.ActionEscalate}, pendingContext())

	f.scheduler.RunNow()

	// The due escalation reached the manager; the future one stayed queued.
	require.Equal(t, 1, f.notifier.Count())
	assert.Equal(t, []string{"emp-2"}, f.notifier.Sent[0].Recipients)
	assert.Equal(t, "escalation", f.notifier.Sent[0].Template)

	due, err := f.queue.Due(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, due, "executed actions do not come due again")

	due, err = f.queue.Due(context.Background(), time.Now().UTC().Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a-future", due[0].ID)
}

func TestRunNow_MarksFailuresWithoutRetry(t *testing.T) {
	f := newSchedulerFixture(t)
	f.notifier.FailWith = errors.New("smtp down")

	f.enqueue(t, "a-1", time.Now().UTC().Add(-time.Minute),
		automation.RuleAction{Type: automation.ActionNotifyManager}, pendingContext())

	f.scheduler.RunNow()

	due, err := f.queue.Due(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, due, "failed actions leave the pending set")

	// A second sweep does nothing: the action was marked, not retried.
	f.notifier.FailWith = nil
	f.scheduler.RunNow()
	assert.Equal(t, 0, f.notifier.Count())
}

func TestRunNow_MissingContextFails(t *testing.T) {
	f := newSchedulerFixture(t)

	// Stored without a context and without explicit recipients: nothing to
	// resolve, so the action fails rather than notifying nobody.
	f.enqueue(t, "a-1", time.Now().UTC().Add(-time.Minute),
		automation.RuleAction{Type: automation.ActionNotifyManager}, nil)

	f.scheduler.RunNow()

	assert.Equal(t, 0, f.notifier.Count())
	due, err := f.queue.Due(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestRunNow_ExplicitRecipientsNeedNoContext(t *testing.T) {
	f := newSchedulerFixture(t)

	f.enqueue(t, "a-1", time.Now().UTC().Add(-time.Minute),
		automation.RuleAction{
			Type:       automation.ActionEscalate,
			Parameters: map[string]any{"recipients": []any{"hr-ops"}},
		}, nil)

	f.scheduler.RunNow()

	require.Equal(t, 1, f.notifier.Count())
	assert.Equal(t, []string{"hr-ops"}, f.notifier.Sent[0].Recipients)
}

func TestScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.PollInterval = 10 * time.Millisecond

	f.enqueue(t, "a-1", time.Now().UTC().Add(-time.Minute),
		automation.RuleAction{Type: automation.ActionEscalate}, pendingContext())

	f.scheduler.Start()
	defer f.scheduler.Stop()

	require.Eventually(t, func() bool { return f.notifier.Count() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.PollInterval = 10 * time.Millisecond

	// Stop before Start is a no-op.
	f.scheduler.Stop()

	f.scheduler.Start()
	f.scheduler.Stop()
	f.scheduler.Stop()

	// A fresh Start/Stop cycle still works after that.
	f.scheduler.Start()
	f.scheduler.Stop()
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.Enabled = false

	f.enqueue(t, "a-1", time.Now().UTC().Add(-time.Minute),
		automation.RuleAction{Type: automation.ActionEscalate}, pendingContext())

	f.scheduler.Start()
	f.scheduler.Stop()

	assert.Equal(t, 0, f.notifier.Count())
}
