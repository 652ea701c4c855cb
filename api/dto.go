/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

ENVELOPE:
  Every response is wrapped in Response{success, data, message}. Success
  responses carry data; failures carry a human-readable message.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: The domain model behind them
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/warp/leave-engine/automation"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// Response is the uniform envelope for every API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: false, Message: message})
}

// =============================================================================
// LEAVE REQUEST TYPES
// =============================================================================

// SubmitLeaveRequest is the request body for submitting leave.
type SubmitLeaveRequest struct {
	EmployeeID string `json:"employeeId"`
	LeaveType  string `json:"leaveType"`
	StartDate  string `json:"startDate"` // YYYY-MM-DD
	EndDate    string `json:"endDate"`   // YYYY-MM-DD
	IsHalfDay  bool   `json:"isHalfDay"`
	Reason     string `json:"reason"`
}

// DecisionRequest is the body for approve/reject/cancel operations.
type DecisionRequest struct {
	ActorID string `json:"actorId"`
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SubmitLeaveResponse pairs the persisted request with the automation
// results its submission triggered.
type SubmitLeaveResponse struct {
	Request    *leave.Request               `json:"request"`
	Automation []automation.ExecutionResult `json:"automation,omitempty"`
}

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
	ManagerID  string `json:"managerId,omitempty"`
	HireDate   string `json:"hireDate"` // YYYY-MM-DD
}

// BalanceDTO flattens a balance for API responses; Available is computed
// at serialization time.
type BalanceDTO struct {
	LeaveType        string  `json:"leaveType"`
	Year             int     `json:"year"`
	TotalEntitlement float64 `json:"totalEntitlement"`
	Used             float64 `json:"used"`
	CarryForward     float64 `json:"carryForward"`
	Available        float64 `json:"available"`
}

func toBalanceDTO(b *leave.Balance) BalanceDTO {
	return BalanceDTO{
		LeaveType:        string(b.Type),
		Year:             b.Year,
		TotalEntitlement: b.TotalEntitlement.InexactFloat64(),
		Used:             b.Used.InexactFloat64(),
		CarryForward:     b.CarryForward.InexactFloat64(),
		Available:        b.Available().InexactFloat64(),
	}
}

// =============================================================================
// AUTOMATION RULE TYPES
// =============================================================================

// CreateRuleRequest is the request body for creating an automation rule.
// Trigger, actions and validation rules use the wire shapes of the
// automation package directly.
type CreateRuleRequest struct {
	Name            string                     `json:"name"`
	Description     string                     `json:"description,omitempty"`
	Enabled         *bool                      `json:"enabled,omitempty"`
	Priority        int                        `json:"priority"`
	Trigger         automation.Trigger         `json:"trigger"`
	Actions         []automation.RuleAction    `json:"actions"`
	ValidationRules []automation.RuleCondition `json:"validationRules,omitempty"`
	CreatedBy       string                     `json:"createdBy,omitempty"`
}

// UpdateRuleRequest is the partial-update body; nil fields are untouched.
type UpdateRuleRequest struct {
	Name            *string                     `json:"name,omitempty"`
	Description     *string                     `json:"description,omitempty"`
	Enabled         *bool                       `json:"enabled,omitempty"`
	Priority        *int                        `json:"priority,omitempty"`
	Trigger         *automation.Trigger         `json:"trigger,omitempty"`
	Actions         *[]automation.RuleAction    `json:"actions,omitempty"`
	ValidationRules *[]automation.RuleCondition `json:"validationRules,omitempty"`
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

// CreateHolidayRequest is the request to add a holiday.
type CreateHolidayRequest struct {
	Name      string `json:"name"`
	Date      string `json:"date"` // YYYY-MM-DD
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
