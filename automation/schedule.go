/*
schedule.go - Deferred action queue

PURPOSE:
  Rules may delay actions instead of running them inline. The engine
  records those as ScheduledAction values; a background scheduler drains
  the queue and runs anything whose time has come. The execution context
  is stored alongside the action so the run happens against the state
  captured at trigger time.

SEE ALSO:
  - engine.go: Produces ScheduledAction values
  - api/scheduler.go: Drains the queue on a ticker
*/
package automation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrScheduledActionNotFound is returned when marking an unknown action.
var ErrScheduledActionNotFound = errors.New("scheduled action not found")

// Scheduled action statuses.
const (
	ScheduleStatusPending  = "PENDING"
	ScheduleStatusExecuted = "EXECUTED"
	ScheduleStatusFailed   = "FAILED"
)

// StoredAction is a ScheduledAction persisted with its captured context
// and execution bookkeeping.
type StoredAction struct {
	ScheduledAction
	Context    *ExecutionContext `json:"context"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExecutedAt *time.Time        `json:"executedAt,omitempty"`
}

// ScheduledActionStore persists deferred actions between trigger time and
// execution time.
type ScheduledActionStore interface {
	// Enqueue stores a pending action with its captured context.
	Enqueue(ctx context.Context, action ScheduledAction, execCtx *ExecutionContext) error

	// Due returns pending actions with ExecuteAt <= now, oldest first.
	Due(ctx context.Context, now time.Time) ([]StoredAction, error)

	// MarkExecuted transitions the action to EXECUTED.
	MarkExecuted(ctx context.Context, id string, at time.Time) error

	// MarkFailed transitions the action to FAILED and records the cause.
	MarkFailed(ctx context.Context, id string, at time.Time, cause string) error
}

// =============================================================================
// MEMORY IMPLEMENTATION
// =============================================================================

type MemoryScheduledActionStore struct {
	mu      sync.Mutex
	actions map[string]*StoredAction
}

func NewMemoryScheduledActionStore() *MemoryScheduledActionStore {
	return &MemoryScheduledActionStore{actions: make(map[string]*StoredAction)}
}

func (s *MemoryScheduledActionStore) Enqueue(_ context.Context, action ScheduledAction, execCtx *ExecutionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions[action.ID] = &StoredAction{
		ScheduledAction: action,
		Context:         execCtx,
		Status:          ScheduleStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	return nil
}

func (s *MemoryScheduledActionStore) Due(_ context.Context, now time.Time) ([]StoredAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []StoredAction
	for _, a := range s.actions {
		if a.Status == ScheduleStatusPending && !a.ExecuteAt.After(now) {
			due = append(due, *a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExecuteAt.Before(due[j].ExecuteAt) })
	return due, nil
}

func (s *MemoryScheduledActionStore) MarkExecuted(_ context.Context, id string, at time.Time) error {
	return s.mark(id, ScheduleStatusExecuted, at, "")
}

func (s *MemoryScheduledActionStore) MarkFailed(_ context.Context, id string, at time.Time, cause string) error {
	return s.mark(id, ScheduleStatusFailed, at, cause)
}

func (s *MemoryScheduledActionStore) mark(id, status string, at time.Time, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return ErrScheduledActionNotFound
	}
	a.Status = status
	a.Error = cause
	t := at.UTC()
	a.ExecutedAt = &t
	return nil
}
