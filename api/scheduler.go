/*
scheduler.go - Deferred action scheduler

PURPOSE:
  Rules can delay actions (e.g. escalate if still pending after an hour).
  The engine records those instead of running them; this scheduler polls
  the queue and executes anything whose time has come, against the
  context snapshot captured when the rule fired.

DESIGN:
  - Runs a background goroutine with a configurable poll interval
  - Each due action is executed once, then marked EXECUTED or FAILED
  - A failing action never blocks the rest of the batch

USAGE:
  scheduler := NewActionScheduler(store, exec, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - automation/engine.go: Where deferred actions originate
  - automation/schedule.go: The queue contract
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/metrics"
)

// ActionScheduler executes deferred automation actions when due.
type ActionScheduler struct {
	Store        automation.ScheduledActionStore
	Exec         *automation.Executor
	Logger       *slog.Logger
	PollInterval time.Duration
	Enabled      bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewActionScheduler creates a scheduler with a one-minute poll interval.
func NewActionScheduler(store automation.ScheduledActionStore, exec *automation.Executor, logger *slog.Logger) *ActionScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionScheduler{
		Store:        store,
		Exec:         exec,
		Logger:       logger,
		PollInterval: time.Minute,
		Enabled:      true,
	}
}

// Start begins the scheduler.
func (s *ActionScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("action scheduler disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.PollInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("action scheduler started", "pollInterval", s.PollInterval)
}

// Stop stops the scheduler and waits for the current batch to finish.
// Safe to call more than once and without a prior Start.
func (s *ActionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	close(s.stop)
	s.wg.Wait()
	s.Logger.Info("action scheduler stopped")
}

func (s *ActionScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.checkAndProcess()

	for {
		select {
		case <-ticker.C:
			s.checkAndProcess()
		case <-stop:
			return
		}
	}
}

func (s *ActionScheduler) checkAndProcess() {
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := s.Store.Due(ctx, now)
	if err != nil {
		s.Logger.Error("failed to load due actions", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	executed, failed := 0, 0
	for _, action := range due {
		if err := s.executeOne(ctx, action); err != nil {
			failed++
		} else {
			executed++
		}
	}
	s.Logger.Info("processed deferred actions", "executed", executed, "failed", failed)
}

func (s *ActionScheduler) executeOne(ctx context.Context, stored automation.StoredAction) error {
	execCtx := stored.Context
	if execCtx == nil {
		execCtx = &automation.ExecutionContext{CurrentDate: time.Now().UTC()}
	}

	if err := s.Exec.Execute(ctx, stored.Action, execCtx); err != nil {
		s.Logger.Warn("deferred action failed",
			"actionId", stored.ID, "ruleId", stored.RuleID,
			"actionType", stored.Action.Type, "error", err)
		metrics.ScheduledActionsProcessed.WithLabelValues("failed").Inc()
		if markErr := s.Store.MarkFailed(ctx, stored.ID, time.Now().UTC(), err.Error()); markErr != nil {
			s.Logger.Error("failed to mark action failed", "actionId", stored.ID, "error", markErr)
		}
		return err
	}

	metrics.ScheduledActionsProcessed.WithLabelValues("executed").Inc()
	if err := s.Store.MarkExecuted(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.Logger.Error("failed to mark action executed", "actionId", stored.ID, "error", err)
	}
	return nil
}

// RunNow triggers an immediate check (for testing/admin).
func (s *ActionScheduler) RunNow() {
	s.checkAndProcess()
}
