package leave

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusEscalated = "escalated"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusApproved || status == StatusRejected || status == StatusCancelled
}

// DecisionMetadata is the evaluator verdict stored with the request so both
// the requester and the approver can see why it landed where it did.
type DecisionMetadata struct {
	Violations  []string `json:"violations"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
}

// Request is the aggregate under the lifecycle state machine.
type Request struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RequestNumber string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_leave_requests_company_number,composite:company_id"`

	LeaveTypeCode string    `gorm:"type:varchar(10);not null"`
	StartDate     time.Time `gorm:"type:date;not null"`
	EndDate       time.Time `gorm:"type:date;not null"`

	TotalDays   int             `gorm:"not null"`
	WorkingDays decimal.Decimal `gorm:"type:numeric(5,1);not null"`
	IsHalfDay   bool            `gorm:"not null;default:false"`

	Reason     string  `gorm:"type:varchar(1000);not null"`
	DocumentID *string `gorm:"type:varchar(255)"`

	Status            string     `gorm:"type:varchar(20);not null;index"`
	CurrentApproverID *uuid.UUID `gorm:"type:uuid;index"`
	SLADeadline       *time.Time
	EscalationCount   int  `gorm:"not null;default:0"`
	SLABreached       bool `gorm:"not null;default:false"`

	DecisionMeta datatypes.JSON `gorm:"type:jsonb"`

	DecidedBy    *uuid.UUID `gorm:"type:uuid"`
	DecidedAt    *time.Time
	DecisionNote *string `gorm:"type:varchar(1000)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Request) TableName() string {
	return "leave_requests"
}

// Balance is the per-employee, per-type, per-year ledger row. Mutated only
// by lifecycle transitions, always under a row lock.
type Balance struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leave_balances_owner"`
	LeaveTypeCode string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_leave_balances_owner"`
	Year          int       `gorm:"not null;uniqueIndex:idx_leave_balances_owner"`

	AnnualEntitlement decimal.Decimal `gorm:"type:numeric(5,1);not null"`
	CarriedForward    decimal.Decimal `gorm:"type:numeric(5,1);not null;default:0"`
	UsedDays          decimal.Decimal `gorm:"type:numeric(5,1);not null;default:0"`
	PendingDays       decimal.Decimal `gorm:"type:numeric(5,1);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Balance) TableName() string {
	return "leave_balances"
}

// Available is what the employee can still commit to:
// entitlement + carried - used - pending.
func (b *Balance) Available() decimal.Decimal {
	return b.AnnualEntitlement.Add(b.CarriedForward).Sub(b.UsedDays).Sub(b.PendingDays)
}
