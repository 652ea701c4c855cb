/*
ledger.go - Append-only history of balance movements

PURPOSE:
  Every change to a balance leaves a ledger entry: seeding from policy,
  consumption at approval, restoration at cancellation, grants from
  automation rules, and year-end carry forward. The balance row answers
  "how much is left"; the ledger answers "how did it get there".

  Entries are never updated or deleted. A cancelled approval is not
  erased - it stays as a CONSUME entry followed by a RESTORE entry
  referencing the same request.

SEE ALSO:
  - lifecycle.go: Records entries alongside each transition
  - store.go: The sibling persistence contracts
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind classifies a ledger entry.
type MovementKind string

const (
	// MovementSeed is the initial entitlement from policy.
	MovementSeed MovementKind = "SEED"
	// MovementConsume is a deduction at approval time.
	MovementConsume MovementKind = "CONSUME"
	// MovementRestore returns a prior deduction after cancellation.
	MovementRestore MovementKind = "RESTORE"
	// MovementGrant is an extra entitlement credit (e.g. comp-off).
	MovementGrant MovementKind = "GRANT"
	// MovementCarryForward is unused balance rolled into the next year.
	MovementCarryForward MovementKind = "CARRY_FORWARD"
)

// LedgerEntry is one balance movement.
type LedgerEntry struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Type       Type            `json:"leaveType"`
	Year       int             `json:"year"`
	Kind       MovementKind    `json:"kind"`
	Days       decimal.Decimal `json:"days"`
	RequestID  string          `json:"requestId,omitempty"` // set for CONSUME/RESTORE
	Note       string          `json:"note,omitempty"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// LedgerFilter narrows ListEntries. Zero values mean "no constraint".
type LedgerFilter struct {
	EmployeeID string
	Type       Type
	Year       int
	RequestID  string
}

// LedgerStore persists balance movements. Append-only.
type LedgerStore interface {
	// AppendEntry records one movement. An empty ID is assigned.
	AppendEntry(ctx context.Context, e *LedgerEntry) error

	// ListEntries returns movements matching the filter, oldest first.
	ListEntries(ctx context.Context, f LedgerFilter) ([]*LedgerEntry, error)
}
