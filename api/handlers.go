/*
handlers.go - HTTP API handlers for the leave management engine

PURPOSE:
  Exposes the leave lifecycle and the automation rule engine via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Leaves:
    POST   /api/leaves                  Submit a leave request
    GET    /api/leaves                  List requests (filterable)
    GET    /api/leaves/{id}             Get one request
    POST   /api/leaves/{id}/approve     Approve (deducts balance)
    POST   /api/leaves/{id}/reject      Reject
    POST   /api/leaves/{id}/cancel      Cancel (restores if approved)

  Employees:
    GET    /api/employees               List employees
    POST   /api/employees               Create employee
    GET    /api/employees/{id}          Get employee
    GET    /api/employees/{id}/balances Balances for a year
    GET    /api/employees/{id}/ledger   Balance movement history

  Automation rules:
    GET    /api/automation-rules        List rules (filterable)
    POST   /api/automation-rules        Create rule
    GET    /api/automation-rules/{id}   Get rule
    PUT    /api/automation-rules/{id}   Partial update (PATCH accepted too)
    DELETE /api/automation-rules/{id}   Delete rule

  Holidays:
    GET    /api/holidays                List holidays
    POST   /api/holidays                Add holiday
    DELETE /api/holidays/{id}           Remove holiday

TRIGGER FLOW:
  Submission persists the request first, then fires LEAVE_REQUEST rules
  against a context snapshot; if the request is still pending afterwards,
  APPROVAL_PENDING rules fire too. Manual approve/reject fire
  LEAVE_APPROVED/LEAVE_REJECTED after the transition commits. Rule
  failures never fail the HTTP operation that triggered them.

ERROR HANDLING:
  Errors are returned inside the response envelope with HTTP status:
  - 400: Validation errors, invalid input, insufficient balance
  - 404: Resource not found
  - 409: Overlapping request, invalid status transition
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures and the envelope
  - automation.go: Context building and engine adapters
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *leave.Service
	Engine    *automation.Engine
	Rules     automation.RuleRepository
	Scheduled automation.ScheduledActionStore
	Logger    *slog.Logger
}

// NewHandler creates a handler over the leave service and rule engine.
func NewHandler(svc *leave.Service, engine *automation.Engine, rules automation.RuleRepository, scheduled automation.ScheduledActionStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Engine: engine, Rules: rules, Scheduled: scheduled, Logger: logger}
}

func (h *Handler) now() time.Time {
	if h.Service.Now != nil {
		return h.Service.Now()
	}
	return time.Now().UTC()
}

// httpStatus maps a domain error to an HTTP status code.
func httpStatus(err error) int {
	switch {
	case leave.IsNotFound(err):
		return http.StatusNotFound
	case leave.IsConflict(err):
		return http.StatusConflict
	case leave.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// SubmitLeave validates, persists and then runs automation for a new request.
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var body SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employeeId is required")
		return
	}
	if !leave.IsKnownType(leave.Type(body.LeaveType)) {
		writeError(w, http.StatusBadRequest, "Unknown leave type: "+body.LeaveType)
		return
	}
	start, err := parseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate format (use YYYY-MM-DD)")
		return
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endDate format (use YYYY-MM-DD)")
		return
	}

	req, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID: body.EmployeeID,
		Type:       leave.Type(body.LeaveType),
		StartDate:  start,
		EndDate:    end,
		IsHalfDay:  body.IsHalfDay,
		Reason:     body.Reason,
	})
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}

	results := h.runTrigger(r.Context(), automation.TriggerLeaveRequest, req)

	// Auto-approve/reject rules may have moved the request on already.
	current, err := h.Service.Requests.GetRequest(r.Context(), req.ID)
	if err != nil {
		current = req
	}
	if current.Status == leave.StatusPending {
		results = append(results, h.runTrigger(r.Context(), automation.TriggerApprovalPending, current)...)
	}

	writeJSON(w, http.StatusCreated, SubmitLeaveResponse{Request: current, Automation: results})
}

// ListLeaves returns requests, filterable by employeeId, status and leaveType.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requests, err := h.Service.Requests.ListRequests(r.Context(), leave.RequestFilter{
		EmployeeID: q.Get("employeeId"),
		Status:     leave.Status(q.Get("status")),
		Type:       leave.Type(q.Get("leaveType")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave requests")
		return
	}
	if requests == nil {
		requests = []*leave.Request{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// GetLeave returns a single request.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.Service.Requests.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ApproveLeave transitions a pending request to approved.
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := h.Service.Approve(r.Context(), chi.URLParam(r, "id"), body.ActorID, body.Comment)
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}

	results := h.runTrigger(r.Context(), automation.TriggerLeaveApproved, req)
	writeJSON(w, http.StatusOK, SubmitLeaveResponse{Request: req, Automation: results})
}

// RejectLeave transitions a pending request to rejected.
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := h.Service.Reject(r.Context(), chi.URLParam(r, "id"), body.ActorID, body.Reason)
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}

	results := h.runTrigger(r.Context(), automation.TriggerLeaveRejected, req)
	writeJSON(w, http.StatusOK, SubmitLeaveResponse{Request: req, Automation: results})
}

// CancelLeave cancels a pending or approved request.
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if r.Body != nil {
		// Body is optional for cancellation.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	req, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "id"), body.ActorID)
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// runTrigger builds a context snapshot, runs the engine, and persists any
// deferred actions. Automation problems are logged, never surfaced as an
// HTTP failure of the operation that triggered them.
func (h *Handler) runTrigger(ctx context.Context, trigger automation.TriggerType, req *leave.Request) []automation.ExecutionResult {
	execCtx, err := BuildContext(ctx, h.Service, req, h.now())
	if err != nil {
		h.Logger.Warn("failed to build automation context",
			"requestId", req.ID, "trigger", trigger, "error", err)
		return nil
	}

	results, err := h.Engine.ExecuteRules(ctx, trigger, execCtx)
	if err != nil {
		h.Logger.Error("automation run failed",
			"requestId", req.ID, "trigger", trigger, "error", err)
		return nil
	}

	for _, result := range results {
		for _, next := range result.NextActions {
			if err := h.Scheduled.Enqueue(ctx, next, execCtx); err != nil {
				h.Logger.Error("failed to enqueue deferred action",
					"ruleId", next.RuleID, "actionType", next.Action.Type, "error", err)
			}
		}
	}
	return results
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.Employees.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees")
		return
	}
	if employees == nil {
		employees = []*leave.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.Employees.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var body CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.ID == "" || body.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	hireDate, err := parseDate(body.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hireDate format (use YYYY-MM-DD)")
		return
	}

	emp := &leave.Employee{
		ID:         body.ID,
		Name:       body.Name,
		Email:      body.Email,
		Role:       body.Role,
		Department: body.Department,
		ManagerID:  body.ManagerID,
		HireDate:   hireDate,
	}
	if err := h.Service.Employees.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee")
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// GetBalances returns an employee's balances for a year (default: current).
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Service.Employees.GetEmployee(r.Context(), id); err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}

	year := h.now().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = parsed
	}

	balances, err := h.Service.Balances.ListBalances(r.Context(), id, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list balances")
		return
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLedger returns an employee's balance movement history, oldest first.
// Filterable by leaveType and year.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Service.Employees.GetEmployee(r.Context(), id); err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	if h.Service.Ledger == nil {
		writeJSON(w, http.StatusOK, []*leave.LedgerEntry{})
		return
	}

	filter := leave.LedgerFilter{
		EmployeeID: id,
		Type:       leave.Type(r.URL.Query().Get("leaveType")),
	}
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		filter.Year = parsed
	}

	entries, err := h.Service.Ledger.ListEntries(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ledger entries")
		return
	}
	if entries == nil {
		entries = []*leave.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// AUTOMATION RULE HANDLERS
// =============================================================================

// ListRules returns automation rules, filterable by enabled and triggerType.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := automation.RuleFilter{TriggerType: automation.TriggerType(q.Get("triggerType"))}
	if e := q.Get("enabled"); e != "" {
		enabled, err := strconv.ParseBool(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid enabled value")
			return
		}
		filter.Enabled = &enabled
	}

	rules, err := h.Rules.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}
	if rules == nil {
		rules = []automation.AutomationRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// GetRule returns one automation rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Rules.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "Automation rule not found")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// CreateRule creates an automation rule after vocabulary validation.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var body CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if msg := validateRuleVocabulary(body.Trigger, body.Actions); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	rule := &automation.AutomationRule{
		Name:            body.Name,
		Description:     body.Description,
		Enabled:         enabled,
		Priority:        body.Priority,
		Trigger:         body.Trigger,
		Actions:         body.Actions,
		ValidationRules: body.ValidationRules,
		CreatedBy:       body.CreatedBy,
	}
	if err := h.Rules.Create(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule applies a partial update to an automation rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var body UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Trigger != nil || body.Actions != nil {
		trigger := automation.Trigger{}
		if body.Trigger != nil {
			trigger = *body.Trigger
		}
		var actions []automation.RuleAction
		if body.Actions != nil {
			actions = *body.Actions
		}
		if msg := validateRuleVocabulary(trigger, actions); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	rule, err := h.Rules.Update(r.Context(), chi.URLParam(r, "id"), automation.RuleUpdate{
		Name:            body.Name,
		Description:     body.Description,
		Enabled:         body.Enabled,
		Priority:        body.Priority,
		Trigger:         body.Trigger,
		Actions:         body.Actions,
		ValidationRules: body.ValidationRules,
	})
	if err == automation.ErrRuleNotFound {
		writeError(w, http.StatusNotFound, "Automation rule not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule removes an automation rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	err := h.Rules.Delete(r.Context(), chi.URLParam(r, "id"))
	if err == automation.ErrRuleNotFound {
		writeError(w, http.StatusNotFound, "Automation rule not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}

// validateRuleVocabulary checks trigger and action types against the known
// sets. Unknown condition types are allowed: they fall through to system
// state lookup at evaluation time.
func validateRuleVocabulary(trigger automation.Trigger, actions []automation.RuleAction) string {
	if trigger.Type != "" {
		known := false
		for _, t := range automation.KnownTriggerTypes() {
			if trigger.Type == t {
				known = true
				break
			}
		}
		if !known {
			return "Unknown trigger type: " + string(trigger.Type)
		}
	}
	for _, a := range actions {
		known := false
		for _, t := range automation.KnownActionTypes() {
			if a.Type == t {
				known = true
				break
			}
		}
		if !known {
			return "Unknown action type: " + string(a.Type)
		}
	}
	return ""
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Service.Holidays.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays")
		return
	}
	if holidays == nil {
		holidays = []*leave.Holiday{}
	}
	writeJSON(w, http.StatusOK, holidays)
}

// CreateHoliday adds a holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var body CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date, err := parseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
		return
	}

	holiday := &leave.Holiday{Name: body.Name, Date: date, Recurring: body.Recurring}
	if err := h.Service.Holidays.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday")
		return
	}
	writeJSON(w, http.StatusCreated, holiday)
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")})
}
