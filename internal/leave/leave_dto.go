package leave

import "time"

type SubmitRequest struct {
	EmployeeID    string  `json:"employee_id" binding:"required,uuid"`
	LeaveTypeCode string  `json:"leave_type_code" binding:"required,max=10"`
	StartDate     string  `json:"start_date" binding:"required"`
	EndDate       string  `json:"end_date" binding:"required"`
	IsHalfDay     bool    `json:"is_half_day"`
	Reason        string  `json:"reason" binding:"required,min=5,max=1000"`
	DocumentID    *string `json:"document_id" binding:"omitempty,max=255"`
}

type ApproveRequest struct {
	Comments *string `json:"comments" binding:"omitempty,max=1000"`
}

type RejectRequest struct {
	Reason   string  `json:"reason" binding:"required,min=3,max=1000"`
	Comments *string `json:"comments" binding:"omitempty,max=1000"`
}

type EscalateRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=1000"`
}

// SubmitResponse carries the outcome plus the full evaluator report so the
// requester sees why the request was escalated rather than auto-approved.
type SubmitResponse struct {
	RequestID     string   `json:"request_id"`
	RequestNumber string   `json:"request_number"`
	Status        string   `json:"status"`
	WorkingDays   string   `json:"working_days"`
	ApproverID    *string  `json:"approver_id,omitempty"`
	SLADeadline   *string  `json:"sla_deadline,omitempty"`
	Violations    []string `json:"violations"`
	Warnings      []string `json:"warnings"`
	Suggestions   []string `json:"suggestions"`
	Confidence    float64  `json:"confidence"`
}

type RequestResponse struct {
	ID              string            `json:"id"`
	RequestNumber   string            `json:"request_number"`
	EmployeeID      string            `json:"employee_id"`
	LeaveTypeCode   string            `json:"leave_type_code"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	TotalDays       int               `json:"total_days"`
	WorkingDays     string            `json:"working_days"`
	IsHalfDay       bool              `json:"is_half_day"`
	Reason          string            `json:"reason"`
	Status          string            `json:"status"`
	ApproverID      *string           `json:"current_approver_id,omitempty"`
	SLADeadline     *string           `json:"sla_deadline,omitempty"`
	EscalationCount int               `json:"escalation_count"`
	SLABreached     bool              `json:"sla_breached"`
	Decision        *DecisionMetadata `json:"decision,omitempty"`
	DecidedBy       *string           `json:"decided_by,omitempty"`
	DecidedAt       *string           `json:"decided_at,omitempty"`
}

type BalanceResponse struct {
	LeaveTypeCode     string `json:"leave_type_code"`
	Year              int    `json:"year"`
	AnnualEntitlement string `json:"annual_entitlement"`
	CarriedForward    string `json:"carried_forward"`
	UsedDays          string `json:"used_days"`
	PendingDays       string `json:"pending_days"`
	Available         string `json:"available"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}
