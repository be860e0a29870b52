package events

import "time"

const LeaveLifecycleTopic = "hr.leave.lifecycle.v1"

const (
	LeaveAutoApproved = "leave.auto_approved"
	LeaveApproved     = "leave.approved"
	LeaveRejected     = "leave.rejected"
	LeaveEscalated    = "leave.escalated"
	LeaveCancelled    = "leave.cancelled"
	LeaveSLABreached  = "leave.sla_breached"
)

// LeaveLifecycleEvent is the payload for every leave notification. Consumers
// (mail, calendar) pick the fields they need per event type.
type LeaveLifecycleEvent struct {
	EventType   string    `json:"event_type"`
	RequestID   string    `json:"request_id"`
	RequestNo   string    `json:"request_number"`
	CompanyID   string    `json:"company_id"`
	EmployeeID  string    `json:"employee_id"`
	LeaveType   string    `json:"leave_type"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Status      string    `json:"status"`
	ApproverID  string    `json:"approver_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	SLADeadline string    `json:"sla_deadline,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
