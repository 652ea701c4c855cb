/*
Package sqlite provides the SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence contract of the system (leave request,
  balance, employee and holiday stores, the automation rule repository,
  and the deferred action queue) on a single SQLite database. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  leave.RequestStore:             Leave requests and overlap queries
  leave.BalanceStore:             Balance rows with atomic consumption
  leave.EmployeeStore:            Employee records
  leave.HolidayStore:             Company holidays
  leave.LedgerStore:              Append-only balance movement history
  automation.RuleRepository:      Automation rules (JSON-encoded bodies)
  automation.ScheduledActionStore: Deferred actions with captured context

BALANCE ATOMICITY:
  Consume is a single conditional UPDATE guarded by the derived
  availability expression (total_entitlement + carry_forward - used).
  Two racing approvals cannot both pass the guard; the loser sees zero
  rows affected and gets an insufficient-balance error built from a
  follow-up read.

KEY TABLES:
  leave_requests:    Requests with approvals as a JSON column
  leave_balances:    One row per employee/type/year
  balance_ledger:    Append-only movement history behind each balance
  employees:         Entity records with role/department for rule conditions
  holidays:          Exact-date and recurring non-working days
  automation_rules:  Rule bodies (trigger/actions/validations) as JSON
  scheduled_actions: Deferred actions plus the context captured at trigger time

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Leave-side interface definitions
  - automation/repository.go: Rule repository definition
  - leave/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ leave.RequestStore              = (*Store)(nil)
	_ leave.BalanceStore              = (*Store)(nil)
	_ leave.EmployeeStore             = (*Store)(nil)
	_ leave.HolidayStore              = (*Store)(nil)
	_ leave.LedgerStore               = (*Store)(nil)
	_ automation.RuleRepository       = (*Store)(nil)
	_ automation.ScheduledActionStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		manager_id TEXT,
		hire_date TEXT NOT NULL
	);

	-- Leave requests
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days REAL NOT NULL,
		is_half_day BOOLEAN DEFAULT FALSE,
		reason TEXT,
		status TEXT NOT NULL,
		applied_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		approvals_json TEXT,
		rejection_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);

	-- Overlap checks walk this: employee + active status + date bounds
	CREATE INDEX IF NOT EXISTS idx_requests_employee_dates
		ON leave_requests(employee_id, status, start_date, end_date);

	-- Leave balances. Availability is derived, never stored.
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		total_entitlement REAL NOT NULL DEFAULT 0,
		used REAL NOT NULL DEFAULT 0,
		carry_forward REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (employee_id, leave_type, year)
	);

	-- Balance movement history. Append-only; the balance row stays the
	-- authoritative figure.
	CREATE TABLE IF NOT EXISTS balance_ledger (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		kind TEXT NOT NULL,
		days REAL NOT NULL,
		request_id TEXT,
		note TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_employee
		ON balance_ledger(employee_id, year, recorded_at);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);

	-- Automation rules. Trigger, actions and validations are JSON bodies:
	-- the engine always loads whole rules, never queries inside them.
	CREATE TABLE IF NOT EXISTS automation_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		enabled BOOLEAN DEFAULT TRUE,
		priority INTEGER NOT NULL DEFAULT 0,
		trigger_type TEXT NOT NULL,
		trigger_json TEXT NOT NULL,
		actions_json TEXT NOT NULL,
		validations_json TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_executed TEXT,
		execution_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_rules_trigger
		ON automation_rules(enabled, trigger_type, priority);
	CREATE INDEX IF NOT EXISTS idx_rules_created_by
		ON automation_rules(created_by);

	-- Deferred actions with the execution context captured at trigger time
	CREATE TABLE IF NOT EXISTS scheduled_actions (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		action_json TEXT NOT NULL,
		context_json TEXT,
		execute_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		error TEXT,
		created_at TEXT NOT NULL,
		executed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scheduled_due
		ON scheduled_actions(status, execute_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REQUEST STORE (leave.RequestStore interface)
// =============================================================================

// SaveRequest inserts a new request.
func (s *Store) SaveRequest(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	approvalsJSON, err := json.Marshal(r.Approvals)
	if err != nil {
		return fmt.Errorf("failed to encode approvals: %w", err)
	}

	query := `
		INSERT INTO leave_requests
		(id, employee_id, leave_type, start_date, end_date, total_days, is_half_day,
		 reason, status, applied_at, updated_at, approvals_json, rejection_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.EmployeeID,
		string(r.Type),
		r.StartDate.Format(dateLayout),
		r.EndDate.Format(dateLayout),
		r.TotalDays.InexactFloat64(),
		r.IsHalfDay,
		r.Reason,
		string(r.Status),
		r.AppliedAt.UTC().Format(timeLayout),
		r.UpdatedAt.UTC().Format(timeLayout),
		string(approvalsJSON),
		r.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// GetRequest returns a request or leave.ErrRequestNotFound.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRequest+" WHERE id = ?", id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrRequestNotFound
	}
	return r, err
}

// UpdateRequest overwrites an existing request.
func (s *Store) UpdateRequest(ctx context.Context, r *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	approvalsJSON, err := json.Marshal(r.Approvals)
	if err != nil {
		return fmt.Errorf("failed to encode approvals: %w", err)
	}

	query := `
		UPDATE leave_requests
		SET employee_id = ?, leave_type = ?, start_date = ?, end_date = ?,
		    total_days = ?, is_half_day = ?, reason = ?, status = ?,
		    updated_at = ?, approvals_json = ?, rejection_reason = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		r.EmployeeID,
		string(r.Type),
		r.StartDate.Format(dateLayout),
		r.EndDate.Format(dateLayout),
		r.TotalDays.InexactFloat64(),
		r.IsHalfDay,
		r.Reason,
		string(r.Status),
		r.UpdatedAt.UTC().Format(timeLayout),
		string(approvalsJSON),
		r.RejectionReason,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrRequestNotFound
	}
	return nil
}

// ListRequests returns requests matching the filter, oldest first.
func (s *Store) ListRequests(ctx context.Context, f leave.RequestFilter) ([]*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRequest + " WHERE 1=1"
	var args []any
	if f.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		query += " AND leave_type = ?"
		args = append(args, string(f.Type))
	}
	query += " ORDER BY applied_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []*leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindOverlap returns the ID of a PENDING or APPROVED request whose inclusive
// date range intersects [start, end], or "" when there is none.
func (s *Store) FindOverlap(ctx context.Context, employeeID string, start, end time.Time, excludeID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Stored dates are ISO day strings, so lexicographic compare is date compare.
	query := `
		SELECT id FROM leave_requests
		WHERE employee_id = ?
		  AND status IN ('PENDING', 'APPROVED')
		  AND id != ?
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC
		LIMIT 1
	`
	var id string
	err := s.db.QueryRowContext(ctx, query,
		employeeID, excludeID, end.Format(dateLayout), start.Format(dateLayout),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query overlap: %w", err)
	}
	return id, nil
}

const selectRequest = `
	SELECT id, employee_id, leave_type, start_date, end_date, total_days, is_half_day,
	       reason, status, applied_at, updated_at, approvals_json, rejection_reason
	FROM leave_requests
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		r               leave.Request
		leaveType       string
		startDate       string
		endDate         string
		totalDays       float64
		status          string
		appliedAt       string
		updatedAt       string
		reason          sql.NullString
		approvalsJSON   sql.NullString
		rejectionReason sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.EmployeeID, &leaveType, &startDate, &endDate, &totalDays,
		&r.IsHalfDay, &reason, &status, &appliedAt, &updatedAt,
		&approvalsJSON, &rejectionReason,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	r.Type = leave.Type(leaveType)
	r.Status = leave.Status(status)
	r.StartDate, _ = time.Parse(dateLayout, startDate)
	r.EndDate, _ = time.Parse(dateLayout, endDate)
	r.TotalDays = decimal.NewFromFloat(totalDays)
	r.AppliedAt, _ = time.Parse(timeLayout, appliedAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	r.Reason = reason.String
	r.RejectionReason = rejectionReason.String
	if approvalsJSON.Valid && approvalsJSON.String != "" {
		if err := json.Unmarshal([]byte(approvalsJSON.String), &r.Approvals); err != nil {
			return nil, fmt.Errorf("failed to decode approvals for %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

// =============================================================================
// BALANCE STORE (leave.BalanceStore interface)
// =============================================================================

// floatGuardEpsilon absorbs REAL representation error in the availability
// guard so an exact-balance consume (available == requested) passes.
const floatGuardEpsilon = 1e-9

// GetBalance returns a balance or leave.ErrBalanceNotFound.
func (s *Store) GetBalance(ctx context.Context, employeeID string, t leave.Type, year int) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getBalance(ctx, employeeID, t, year)
}

func (s *Store) getBalance(ctx context.Context, employeeID string, t leave.Type, year int) (*leave.Balance, error) {
	var total, used, carry float64
	err := s.db.QueryRowContext(ctx, `
		SELECT total_entitlement, used, carry_forward
		FROM leave_balances
		WHERE employee_id = ? AND leave_type = ? AND year = ?
	`, employeeID, string(t), year).Scan(&total, &used, &carry)
	if err == sql.ErrNoRows {
		return nil, leave.ErrBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query balance: %w", err)
	}
	return &leave.Balance{
		EmployeeID:       employeeID,
		Type:             t,
		Year:             year,
		TotalEntitlement: decimal.NewFromFloat(total),
		Used:             decimal.NewFromFloat(used),
		CarryForward:     decimal.NewFromFloat(carry),
	}, nil
}

// ListBalances returns all balances for an employee in a year.
func (s *Store) ListBalances(ctx context.Context, employeeID string, year int) ([]*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT leave_type, total_entitlement, used, carry_forward
		FROM leave_balances
		WHERE employee_id = ? AND year = ?
		ORDER BY leave_type ASC
	`, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var out []*leave.Balance
	for rows.Next() {
		var (
			leaveType          string
			total, used, carry float64
		)
		if err := rows.Scan(&leaveType, &total, &used, &carry); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		out = append(out, &leave.Balance{
			EmployeeID:       employeeID,
			Type:             leave.Type(leaveType),
			Year:             year,
			TotalEntitlement: decimal.NewFromFloat(total),
			Used:             decimal.NewFromFloat(used),
			CarryForward:     decimal.NewFromFloat(carry),
		})
	}
	return out, rows.Err()
}

// SaveBalance inserts or replaces a balance row.
func (s *Store) SaveBalance(ctx context.Context, b *leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_balances (employee_id, leave_type, year, total_entitlement, used, carry_forward)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, leave_type, year) DO UPDATE SET
			total_entitlement = excluded.total_entitlement,
			used = excluded.used,
			carry_forward = excluded.carry_forward
	`, b.EmployeeID, string(b.Type), b.Year,
		b.TotalEntitlement.InexactFloat64(), b.Used.InexactFloat64(), b.CarryForward.InexactFloat64())
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// Consume adds days to Used iff availability covers them. The guard and the
// deduction are one statement, so concurrent approvals cannot overdraw.
func (s *Store) Consume(ctx context.Context, employeeID string, t leave.Type, year int, days decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_balances
		SET used = used + ?
		WHERE employee_id = ? AND leave_type = ? AND year = ?
		  AND (total_entitlement + carry_forward - used) + ? >= ?
	`, days.InexactFloat64(), employeeID, string(t), year, floatGuardEpsilon, days.InexactFloat64())
	if err != nil {
		return fmt.Errorf("failed to consume balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Guard failed: either no row or not enough available.
	b, err := s.getBalance(ctx, employeeID, t, year)
	if err != nil {
		return err
	}
	return &leave.InsufficientBalanceError{
		EmployeeID: employeeID,
		Type:       t,
		Year:       year,
		Available:  b.Available(),
		Requested:  days,
	}
}

// Restore subtracts days from Used, clamping at zero.
func (s *Store) Restore(ctx context.Context, employeeID string, t leave.Type, year int, days decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE leave_balances
		SET used = MAX(used - ?, 0.0)
		WHERE employee_id = ? AND leave_type = ? AND year = ?
	`, days.InexactFloat64(), employeeID, string(t), year)
	if err != nil {
		return fmt.Errorf("failed to restore balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrBalanceNotFound
	}
	return nil
}

// Grant adds days to TotalEntitlement, creating the row when absent.
func (s *Store) Grant(ctx context.Context, employeeID string, t leave.Type, year int, days decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_balances (employee_id, leave_type, year, total_entitlement, used, carry_forward)
		VALUES (?, ?, ?, ?, 0, 0)
		ON CONFLICT(employee_id, leave_type, year) DO UPDATE SET
			total_entitlement = total_entitlement + excluded.total_entitlement
	`, employeeID, string(t), year, days.InexactFloat64())
	if err != nil {
		return fmt.Errorf("failed to grant balance: %w", err)
	}
	return nil
}

// =============================================================================
// LEDGER STORE (leave.LedgerStore interface)
// =============================================================================

// AppendEntry records one balance movement.
func (s *Store) AppendEntry(ctx context.Context, e *leave.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balance_ledger (id, employee_id, leave_type, year, kind, days, request_id, note, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.EmployeeID, string(e.Type), e.Year, string(e.Kind),
		e.Days.InexactFloat64(), nullString(e.RequestID), nullString(e.Note),
		e.RecordedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListEntries returns movements matching the filter, oldest first.
func (s *Store) ListEntries(ctx context.Context, f leave.LedgerFilter) ([]*leave.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, leave_type, year, kind, days, request_id, note, recorded_at
		FROM balance_ledger
		WHERE 1=1`
	var args []any
	if f.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, f.EmployeeID)
	}
	if f.Type != "" {
		query += " AND leave_type = ?"
		args = append(args, string(f.Type))
	}
	if f.Year != 0 {
		query += " AND year = ?"
		args = append(args, f.Year)
	}
	if f.RequestID != "" {
		query += " AND request_id = ?"
		args = append(args, f.RequestID)
	}
	// Insertion order; recorded_at alone cannot break ties within a second.
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var out []*leave.LedgerEntry
	for rows.Next() {
		var (
			e               leave.LedgerEntry
			leaveType, kind string
			days            float64
			requestID, note sql.NullString
			recordedAt      string
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &leaveType, &e.Year, &kind,
			&days, &requestID, &note, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Type = leave.Type(leaveType)
		e.Kind = leave.MovementKind(kind)
		e.Days = decimal.NewFromFloat(days)
		e.RequestID = requestID.String
		e.Note = note.String
		if t, err := time.Parse(timeLayout, recordedAt); err == nil {
			e.RecordedAt = t
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// =============================================================================
// EMPLOYEE STORE (leave.EmployeeStore interface)
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e *leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, role, department, manager_id, hire_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, role = excluded.role,
			department = excluded.department, manager_id = excluded.manager_id,
			hire_date = excluded.hire_date
	`, e.ID, e.Name, e.Email, e.Role, e.Department, nullString(e.ManagerID),
		e.HireDate.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee returns an employee or leave.ErrEmployeeNotFound.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		e         leave.Employee
		email     sql.NullString
		managerID sql.NullString
		hireDate  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, department, manager_id, hire_date
		FROM employees WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &email, &e.Role, &e.Department, &managerID, &hireDate)
	if err == sql.ErrNoRows {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	e.Email = email.String
	e.ManagerID = managerID.String
	e.HireDate, _ = time.Parse(dateLayout, hireDate)
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, department, manager_id, hire_date
		FROM employees ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []*leave.Employee
	for rows.Next() {
		var (
			e         leave.Employee
			email     sql.NullString
			managerID sql.NullString
			hireDate  string
		)
		if err := rows.Scan(&e.ID, &e.Name, &email, &e.Role, &e.Department, &managerID, &hireDate); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.Email = email.String
		e.ManagerID = managerID.String
		e.HireDate, _ = time.Parse(dateLayout, hireDate)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY STORE (leave.HolidayStore interface)
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h *leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, recurring)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET recurring = excluded.recurring
	`, h.ID, h.Date.Format(dateLayout), h.Name, h.Recurring)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context) ([]*leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, recurring FROM holidays ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var out []*leave.Holiday
	for rows.Next() {
		var (
			h    leave.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name, &h.Recurring); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date, _ = time.Parse(dateLayout, date)
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

// =============================================================================
// RULE REPOSITORY (automation.RuleRepository interface)
// =============================================================================

// Create persists a new automation rule.
func (s *Store) Create(ctx context.Context, rule *automation.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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

	triggerJSON, actionsJSON, validationsJSON, err := encodeRuleBody(rule)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automation_rules
		(id, name, description, enabled, priority, trigger_type, trigger_json,
		 actions_json, validations_json, created_by, created_at, updated_at, execution_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, rule.ID, rule.Name, rule.Description, rule.Enabled, rule.Priority,
		string(rule.Trigger.Type), triggerJSON, actionsJSON, validationsJSON,
		rule.CreatedBy, rule.CreatedAt.Format(timeLayout), rule.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// Get returns the rule or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*automation.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRule+" WHERE id = ?", id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rule, err
}

// List returns rules matching the filter, priority ascending.
func (s *Store) List(ctx context.Context, filter automation.RuleFilter) ([]automation.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectRule + " WHERE 1=1"
	var args []any
	if filter.Enabled != nil {
		query += " AND enabled = ?"
		args = append(args, *filter.Enabled)
	}
	if filter.TriggerType != "" {
		query += " AND trigger_type = ?"
		args = append(args, string(filter.TriggerType))
	}
	if filter.CreatedBy != "" {
		query += " AND created_by = ?"
		args = append(args, filter.CreatedBy)
	}
	query += " ORDER BY priority ASC, created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []automation.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// Update applies a partial update and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id string, upd automation.RuleUpdate) (*automation.AutomationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, selectRule+" WHERE id = ?", id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, automation.ErrRuleNotFound
	}
	if err != nil {
		return nil, err
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

	triggerJSON, actionsJSON, validationsJSON, err := encodeRuleBody(rule)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE automation_rules
		SET name = ?, description = ?, enabled = ?, priority = ?, trigger_type = ?,
		    trigger_json = ?, actions_json = ?, validations_json = ?, updated_at = ?
		WHERE id = ?
	`, rule.Name, rule.Description, rule.Enabled, rule.Priority, string(rule.Trigger.Type),
		triggerJSON, actionsJSON, validationsJSON, rule.UpdatedAt.Format(timeLayout), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return rule, nil
}

// Delete removes the rule.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return automation.ErrRuleNotFound
	}
	return nil
}

// RecordExecution bumps ExecutionCount and sets LastExecuted.
func (s *Store) RecordExecution(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE automation_rules
		SET execution_count = execution_count + 1, last_executed = ?
		WHERE id = ?
	`, at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return automation.ErrRuleNotFound
	}
	return nil
}

const selectRule = `
	SELECT id, name, description, enabled, priority, trigger_json, actions_json,
	       validations_json, created_by, created_at, updated_at, last_executed, execution_count
	FROM automation_rules
`

func encodeRuleBody(rule *automation.AutomationRule) (trigger, actions, validations string, err error) {
	t, err := json.Marshal(rule.Trigger)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode trigger: %w", err)
	}
	a, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode actions: %w", err)
	}
	v, err := json.Marshal(rule.ValidationRules)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode validation rules: %w", err)
	}
	return string(t), string(a), string(v), nil
}

func scanRule(row rowScanner) (*automation.AutomationRule, error) {
	var (
		rule            automation.AutomationRule
		description     sql.NullString
		triggerJSON     string
		actionsJSON     string
		validationsJSON sql.NullString
		createdBy       sql.NullString
		createdAt       string
		updatedAt       string
		lastExecuted    sql.NullString
	)

	err := row.Scan(
		&rule.ID, &rule.Name, &description, &rule.Enabled, &rule.Priority,
		&triggerJSON, &actionsJSON, &validationsJSON, &createdBy,
		&createdAt, &updatedAt, &lastExecuted, &rule.ExecutionCount,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	rule.Description = description.String
	rule.CreatedBy = createdBy.String
	if err := json.Unmarshal([]byte(triggerJSON), &rule.Trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger for %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode actions for %s: %w", rule.ID, err)
	}
	if validationsJSON.Valid && validationsJSON.String != "" {
		if err := json.Unmarshal([]byte(validationsJSON.String), &rule.ValidationRules); err != nil {
			return nil, fmt.Errorf("failed to decode validation rules for %s: %w", rule.ID, err)
		}
	}
	rule.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rule.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if lastExecuted.Valid && lastExecuted.String != "" {
		t, _ := time.Parse(timeLayout, lastExecuted.String)
		rule.LastExecuted = &t
	}
	return &rule, nil
}

// =============================================================================
// SCHEDULED ACTION STORE (automation.ScheduledActionStore interface)
// =============================================================================

// Enqueue stores a pending deferred action with its captured context.
func (s *Store) Enqueue(ctx context.Context, action automation.ScheduledAction, execCtx *automation.ExecutionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actionJSON, err := json.Marshal(action.Action)
	if err != nil {
		return fmt.Errorf("failed to encode action: %w", err)
	}
	contextJSON, err := json.Marshal(execCtx)
	if err != nil {
		return fmt.Errorf("failed to encode execution context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_actions
		(id, rule_id, action_json, context_json, execute_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, action.ID, action.RuleID, string(actionJSON), string(contextJSON),
		action.ExecuteAt.UTC().Format(timeLayout), automation.ScheduleStatusPending,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to enqueue scheduled action: %w", err)
	}
	return nil
}

// Due returns pending actions whose time has come, oldest first.
func (s *Store) Due(ctx context.Context, now time.Time) ([]automation.StoredAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, action_json, context_json, execute_at, status, error, created_at, executed_at
		FROM scheduled_actions
		WHERE status = ? AND execute_at <= ?
		ORDER BY execute_at ASC
	`, automation.ScheduleStatusPending, now.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled actions: %w", err)
	}
	defer rows.Close()

	var out []automation.StoredAction
	for rows.Next() {
		var (
			a           automation.StoredAction
			actionJSON  string
			contextJSON sql.NullString
			executeAt   string
			errMsg      sql.NullString
			createdAt   string
			executedAt  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.RuleID, &actionJSON, &contextJSON,
			&executeAt, &a.Status, &errMsg, &createdAt, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled action: %w", err)
		}
		if err := json.Unmarshal([]byte(actionJSON), &a.Action); err != nil {
			return nil, fmt.Errorf("failed to decode action for %s: %w", a.ID, err)
		}
		if contextJSON.Valid && contextJSON.String != "" {
			if err := json.Unmarshal([]byte(contextJSON.String), &a.Context); err != nil {
				return nil, fmt.Errorf("failed to decode context for %s: %w", a.ID, err)
			}
		}
		a.ExecuteAt, _ = time.Parse(timeLayout, executeAt)
		a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		a.Error = errMsg.String
		if executedAt.Valid && executedAt.String != "" {
			t, _ := time.Parse(timeLayout, executedAt.String)
			a.ExecutedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkExecuted transitions the action to EXECUTED.
func (s *Store) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	return s.markScheduled(ctx, id, automation.ScheduleStatusExecuted, at, "")
}

// MarkFailed transitions the action to FAILED and records the cause.
func (s *Store) MarkFailed(ctx context.Context, id string, at time.Time, cause string) error {
	return s.markScheduled(ctx, id, automation.ScheduleStatusFailed, at, cause)
}

func (s *Store) markScheduled(ctx context.Context, id, status string, at time.Time, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_actions SET status = ?, error = ?, executed_at = ?
		WHERE id = ?
	`, status, cause, at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to mark scheduled action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return automation.ErrScheduledActionNotFound
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
