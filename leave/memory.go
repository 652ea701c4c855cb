package leave

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"time"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// MemoryStore implements RequestStore, BalanceStore, EmployeeStore,
// HolidayStore and LedgerStore with maps behind one mutex.
// Consume/Restore/Grant are atomic because all mutation happens under
// the lock.
type MemoryStore struct {
	mu        sync.RWMutex
	requests  map[string]*Request
	balances  map[balanceKey]*Balance
	employees map[string]*Employee
	holidays  map[string]*Holiday
	ledger    []*LedgerEntry
}

type balanceKey struct {
	EmployeeID string
	Type       Type
	Year       int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[string]*Request),
		balances:  make(map[balanceKey]*Balance),
		employees: make(map[string]*Employee),
		holidays:  make(map[string]*Holiday),
	}
}

// -----------------------------------------------------------------------------
// RequestStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) SaveRequest(_ context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateRequest(_ context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return ErrRequestNotFound
	}
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *MemoryStore) ListRequests(_ context.Context, f RequestFilter) ([]*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Request
	for _, r := range m.requests {
		if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (m *MemoryStore) FindOverlap(_ context.Context, employeeID string, start, end time.Time, excludeID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.requests {
		if r.EmployeeID != employeeID || r.ID == excludeID {
			continue
		}
		if r.Status != StatusPending && r.Status != StatusApproved {
			continue
		}
		if r.Overlaps(start, end) {
			return r.ID, nil
		}
	}
	return "", nil
}

// -----------------------------------------------------------------------------
// BalanceStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) GetBalance(_ context.Context, employeeID string, t Type, year int) (*Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[balanceKey{employeeID, t, year}]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) ListBalances(_ context.Context, employeeID string, year int) ([]*Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Balance
	for k, b := range m.balances {
		if k.EmployeeID == employeeID && k.Year == year {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (m *MemoryStore) SaveBalance(_ context.Context, b *Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.balances[balanceKey{b.EmployeeID, b.Type, b.Year}] = &cp
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, employeeID string, t Type, year int, days decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey{employeeID, t, year}]
	if !ok {
		return ErrBalanceNotFound
	}
	if !b.CanConsume(days) {
		return &InsufficientBalanceError{
			EmployeeID: employeeID,
			Type:       t,
			Year:       year,
			Available:  b.Available(),
			Requested:  days,
		}
	}
	b.Used = b.Used.Add(days)
	return nil
}

func (m *MemoryStore) Restore(_ context.Context, employeeID string, t Type, year int, days decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey{employeeID, t, year}]
	if !ok {
		return ErrBalanceNotFound
	}
	b.Used = b.Used.Sub(days)
	if b.Used.IsNegative() {
		b.Used = decimal.Zero
	}
	return nil
}

func (m *MemoryStore) Grant(_ context.Context, employeeID string, t Type, year int, days decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[balanceKey{employeeID, t, year}]
	if !ok {
		b = &Balance{
			EmployeeID:       employeeID,
			Type:             t,
			Year:             year,
			TotalEntitlement: decimal.Zero,
			Used:             decimal.Zero,
			CarryForward:     decimal.Zero,
		}
		m.balances[balanceKey{employeeID, t, year}] = b
	}
	b.TotalEntitlement = b.TotalEntitlement.Add(days)
	return nil
}

// -----------------------------------------------------------------------------
// EmployeeStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) SaveEmployee(_ context.Context, e *Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m *MemoryStore) GetEmployee(_ context.Context, id string) (*Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryStore) ListEmployees(_ context.Context) ([]*Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Employee
	for _, e := range m.employees {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// -----------------------------------------------------------------------------
// HolidayStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) SaveHoliday(_ context.Context, h *Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	m.holidays[h.ID] = &cp
	return nil
}

func (m *MemoryStore) ListHolidays(_ context.Context) ([]*Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Holiday
	for _, h := range m.holidays {
		cp := *h
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

// -----------------------------------------------------------------------------
// LedgerStore
// -----------------------------------------------------------------------------

func (m *MemoryStore) AppendEntry(_ context.Context, e *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.ledger = append(m.ledger, &cp)
	return nil
}

func (m *MemoryStore) ListEntries(_ context.Context, f LedgerFilter) ([]*LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*LedgerEntry
	for _, e := range m.ledger {
		if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Year != 0 && e.Year != f.Year {
			continue
		}
		if f.RequestID != "" && e.RequestID != f.RequestID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
